package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mit-pdos/go-journal/util"

	norftl "github.com/norfs/go-norftl"
	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/config"
	"github.com/norfs/go-norftl/flash"
)

func main() {
	var image string
	flag.StringVar(&image, "image", "", "flash image file to format")

	var sizeMB uint64
	flag.Uint64Var(&sizeMB, "size", 4, "flash size in MiB (4/8/16/32/64/128)")

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "YAML device description (overrides -image/-size)")

	flag.Uint64Var(&util.Debug, "debug", 0, "debug level (higher is more verbose)")
	flag.Parse()

	if cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "norftl-mkfs: %v\n", err)
			os.Exit(1)
		}
		image = cfg.Image
		sizeMB = uint64(cfg.FlashSizeMB)
		util.Debug = cfg.Debug
	}
	if image == "" {
		fmt.Fprintf(os.Stderr, "norftl-mkfs: -image or -config is required\n")
		os.Exit(1)
	}

	pages := sizeMB * 1024 * 1024 / common.PageSize
	dev, err := flash.OpenFileFlash(image, pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "norftl-mkfs: open %s: %v\n", image, err)
		os.Exit(1)
	}
	defer dev.Close()

	// A zero-filled image has no valid master table, so New formats it.
	ftl, err := norftl.New(dev, uint32(sizeMB))
	if err != nil {
		fmt.Fprintf(os.Stderr, "norftl-mkfs: %v\n", err)
		os.Exit(1)
	}
	defer ftl.Close()

	fmt.Printf("%s: %d MiB, %d pages, %d table pages, %d usable sectors\n",
		image, sizeMB, ftl.PhysicalPages(), ftl.TTPages(), ftl.UsableSectors())
}
