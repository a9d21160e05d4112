// Package timed_flash wraps a flash device and records per-operation
// latencies, for the stats dump in the cmds.
package timed_flash

import (
	"io"
	"time"

	"github.com/norfs/go-norftl/flash"
	"github.com/norfs/go-norftl/util/stats"
)

type Flash struct {
	dev flash.Flash
	ops [4]stats.Op
}

func New(dev flash.Flash) *Flash {
	return &Flash{dev: dev}
}

const (
	readOp int = iota
	programOp
	eraseOp
	isErasedOp
)

var ops = []string{"flash.Read", "flash.Program", "flash.Erase", "flash.IsErased"}

// assert that Flash implements flash.Flash
var _ flash.Flash = &Flash{}

func (f *Flash) Read(off uint64, p []byte) error {
	defer f.ops[readOp].Record(time.Now())
	return f.dev.Read(off, p)
}

func (f *Flash) Program(off uint64, p []byte) error {
	defer f.ops[programOp].Record(time.Now())
	return f.dev.Program(off, p)
}

func (f *Flash) Erase(off uint64) error {
	defer f.ops[eraseOp].Record(time.Now())
	return f.dev.Erase(off)
}

func (f *Flash) IsErased(off uint64) bool {
	defer f.ops[isErasedOp].Record(time.Now())
	return f.dev.IsErased(off)
}

func (f *Flash) WriteStats(w io.Writer) {
	stats.WriteTable(ops, f.ops[:], w)
}

func (f *Flash) ResetStats() {
	for i := range f.ops {
		f.ops[i].Reset()
	}
}
