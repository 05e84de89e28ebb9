// Command luxkernel boots the kernel simulator against a disk image and,
// in interactive mode, bridges the real terminal into it as a PS/2
// keyboard and a diagnostic console.
//
// License: GPLv3 or later
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"

	kernel "github.com/lux-os/luxkernel"
)

func main() {
	optDisk := getopt.StringLong("disk", 'd', "", "Disk image path (created if missing)")
	optSectors := getopt.StringLong("sectors", 's', fmt.Sprint(kernel.DefaultDiskSectors), "Sectors to allocate for a new disk image")
	optInteractive := getopt.BoolLong("interactive", 'i', "Bridge stdin as a PS/2 keyboard and run the diagnostic console")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}
	if *optDisk == "" {
		log.Fatal("luxkernel: --disk is required")
	}
	sectors, err := strconv.ParseUint(*optSectors, 10, 32)
	if err != nil {
		log.Fatalf("luxkernel: --sectors: %v", err)
	}

	k := kernel.NewKernel(uint32(sectors), kernel.LayoutUS, kernel.NewHeadlessCellSink())

	if image, err := os.ReadFile(*optDisk); err == nil {
		if err := k.LoadDiskImage(image); err != nil {
			log.Fatalf("luxkernel: loading %s: %v", *optDisk, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("luxkernel: reading %s: %v", *optDisk, err)
	}

	if err := k.Boot(); err != nil {
		log.Fatalf("luxkernel: boot failed: %v", err)
	}
	log.Printf("luxkernel: booted, disk %s (%d sectors)", *optDisk, sectors)

	if *optInteractive {
		bridge := kernel.NewHostBridge(k.PS2)
		bridge.Start()
		defer bridge.Stop()

		k.PIT.StartRealTime()
		defer k.PIT.Stop()

		console := k.NewDiagConsole()
		console.Run()
	}

	if err := os.WriteFile(*optDisk, k.SaveDiskImage(), 0o644); err != nil {
		log.Fatalf("luxkernel: writing %s: %v", *optDisk, err)
	}
}
