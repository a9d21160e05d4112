// Package tt defines the on-flash translation-table page layout: a fixed
// 16-byte header followed by packed 3-byte PageInfo records. All fields
// are little-endian; the layout is the persisted format and cannot
// change.
package tt

import (
	"github.com/tchajed/marshal"

	"github.com/norfs/go-norftl/common"
)

const (
	// PageMagic marks the first word of every translation-table page.
	PageMagic uint32 = 0xEF87364A

	HeaderSize uint64 = 16
	RecordSize uint64 = 3

	// padding is written as 0xFFFF and included in the CRC, reserved
	// for a future header extension.
	padding uint16 = 0xffff
)

// Header is the fixed-layout head of a translation-table page.
//
//	magicStart    uint32
//	logicalPageNo uint32  (0 = master table)
//	serial        uint32  (generation counter)
//	padding       uint16  (0xFFFF)
//	crc16         uint16  (CRC-16/CCITT of the first 14 bytes)
type Header struct {
	Magic         uint32
	LogicalPageNo uint32
	Serial        uint32
	Crc           uint16
}

// PageInfo is one translation record: where a logical page lives and
// which of its sectors have been written since the last erase (bit i = 1
// means sector i is still blank).
type PageInfo struct {
	PhysicalPageNo common.Pgno
	SectStatus     uint8
}

// Crc computes the header checksum: CRC-16/CCITT over the first 14
// header bytes with the padding field forced to 0xFFFF.
func Crc(h Header) uint16 {
	enc := marshal.NewEnc(HeaderSize - 2)
	enc.PutInt32(h.Magic)
	enc.PutInt32(h.LogicalPageNo)
	enc.PutInt32(h.Serial)
	enc.PutBytes([]byte{0xff, 0xff}) // padding
	return crc16(enc.Finish(), 0xffff)
}

// Valid reports whether the header carries the magic and a matching CRC.
func (h Header) Valid() bool {
	return h.Magic == PageMagic && h.Crc == Crc(h)
}

func EncodeHeader(h Header) []byte {
	enc := marshal.NewEnc(HeaderSize)
	enc.PutInt32(h.Magic)
	enc.PutInt32(h.LogicalPageNo)
	enc.PutInt32(h.Serial)
	enc.PutBytes([]byte{0xff, 0xff}) // padding
	enc.PutBytes([]byte{byte(h.Crc), byte(h.Crc >> 8)})
	return enc.Finish()
}

func DecodeHeader(b []byte) Header {
	dec := marshal.NewDec(b)
	h := Header{}
	h.Magic = dec.GetInt32()
	h.LogicalPageNo = dec.GetInt32()
	h.Serial = dec.GetInt32()
	dec.GetBytes(2) // padding
	crc := dec.GetBytes(2)
	h.Crc = uint16(crc[0]) | uint16(crc[1])<<8
	return h
}

func GetHeader(page []byte) Header {
	return DecodeHeader(page[:HeaderSize])
}

func PutHeader(page []byte, h Header) {
	copy(page, EncodeHeader(h))
}

// Seal recomputes the header CRC in place.
func Seal(page []byte) {
	h := GetHeader(page)
	h.Crc = Crc(h)
	PutHeader(page, h)
}

// BumpSerial advances the generation counter and reseals the page. Done
// on every relocation so mount can pick the newest image.
func BumpSerial(page []byte) {
	h := GetHeader(page)
	h.Serial++
	h.Crc = Crc(h)
	PutHeader(page, h)
}

func recordOff(recordNo uint64) uint64 {
	if recordNo >= common.TTRecordsPerPage {
		panic("tt: record number out of range")
	}
	return HeaderSize + recordNo*RecordSize
}

func GetRecord(page []byte, recordNo uint64) PageInfo {
	off := recordOff(recordNo)
	raw := uint16(page[off]) | uint16(page[off+1])<<8
	return PageInfo{
		PhysicalPageNo: common.Pgno(int16(raw)),
		SectStatus:     page[off+2],
	}
}

func PutRecord(page []byte, recordNo uint64, info PageInfo) {
	off := recordOff(recordNo)
	raw := uint16(int16(info.PhysicalPageNo))
	page[off] = byte(raw)
	page[off+1] = byte(raw >> 8)
	page[off+2] = info.SectStatus
}

// PutRecordPpno rewrites only the physical location of a record, leaving
// its sector bitmap alone. Used when the master table patches its own
// self-reference and its table pointers.
func PutRecordPpno(page []byte, recordNo uint64, ppno common.Pgno) {
	off := recordOff(recordNo)
	raw := uint16(int16(ppno))
	page[off] = byte(raw)
	page[off+1] = byte(raw >> 8)
}

// InitPage formats page as an empty translation table: every record
// reads as unmapped (0xFF bytes decode to physicalPageNo -1, sectStatus
// 0xFF) under a serial-1 header.
func InitPage(page []byte, logicalPageNo uint32) {
	for i := range page {
		page[i] = 0xff
	}
	h := Header{
		Magic:         PageMagic,
		LogicalPageNo: logicalPageNo,
		Serial:        1,
	}
	h.Crc = Crc(h)
	PutHeader(page, h)
}
