package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mit-pdos/go-journal/util"
	"github.com/rodaine/table"

	norftl "github.com/norfs/go-norftl"
	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/config"
	"github.com/norfs/go-norftl/flash"
	"github.com/norfs/go-norftl/util/timed_flash"
)

func main() {
	var image string
	flag.StringVar(&image, "image", "", "flash image file")

	var sizeMB uint64
	flag.Uint64Var(&sizeMB, "size", 4, "flash size in MiB (4/8/16/32/64/128)")

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "YAML device description (overrides -image/-size)")

	var dumpSector int64
	flag.Int64Var(&dumpSector, "dump", -1, "hex-dump this sector and exit")

	var dumpStats bool
	flag.BoolVar(&dumpStats, "stats", false, "dump flash op stats at end (SIGUSR1 dumps early)")

	flag.Uint64Var(&util.Debug, "debug", 0, "debug level (higher is more verbose)")
	flag.Parse()

	if cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "norftl: %v\n", err)
			os.Exit(1)
		}
		image = cfg.Image
		sizeMB = uint64(cfg.FlashSizeMB)
		util.Debug = cfg.Debug
	}
	if image == "" {
		fmt.Fprintf(os.Stderr, "norftl: -image or -config is required\n")
		os.Exit(1)
	}

	pages := sizeMB * 1024 * 1024 / common.PageSize
	fileDev, err := flash.OpenFileFlash(image, pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "norftl: open %s: %v\n", image, err)
		os.Exit(1)
	}
	defer fileDev.Close()

	var dev flash.Flash = fileDev
	var timed *timed_flash.Flash
	if dumpStats {
		timed = timed_flash.New(fileDev)
		dev = timed

		statSig := make(chan os.Signal, 1)
		signal.Notify(statSig, syscall.SIGUSR1)
		go func() {
			for range statSig {
				timed.WriteStats(os.Stderr)
				timed.ResetStats()
			}
		}()
	}

	ftl, err := norftl.New(dev, uint32(sizeMB))
	if err != nil {
		fmt.Fprintf(os.Stderr, "norftl: %v\n", err)
		os.Exit(1)
	}
	defer ftl.Close()

	if dumpSector >= 0 {
		buf := make([]byte, common.SectorSize)
		if err := ftl.ReadSector(uint32(dumpSector), buf); err != nil {
			fmt.Fprintf(os.Stderr, "norftl: read sector %d: %v\n", dumpSector, err)
			os.Exit(1)
		}
		fmt.Print(hex.Dump(buf))
		return
	}

	serial, err := ftl.MTTSerial()
	if err != nil {
		fmt.Fprintf(os.Stderr, "norftl: %v\n", err)
		os.Exit(1)
	}
	tbl := table.New("property", "value")
	tbl.AddRow("image", image)
	tbl.AddRow("size", fmt.Sprintf("%d MiB", sizeMB))
	tbl.AddRow("physical pages", ftl.PhysicalPages())
	tbl.AddRow("table pages", ftl.TTPages())
	tbl.AddRow("usable sectors", ftl.UsableSectors())
	tbl.AddRow("master table page", ftl.MTTPage())
	tbl.AddRow("master table serial", serial)
	tbl.AddRow("memory used", fmt.Sprintf("%d bytes", ftl.MemoryUsed()))
	tbl.Print()

	if dumpStats && timed != nil {
		timed.WriteStats(os.Stderr)
	}
}
