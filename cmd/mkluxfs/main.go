// Command mkluxfs formats a fresh luxfs disk image offline: it boots a
// kernel against a blank in-memory disk, whose mount formats it, and
// saves the resulting image.
//
// License: GPLv3 or later
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	kernel "github.com/lux-os/luxkernel"
)

func main() {
	var sectors uint32
	var force bool

	root := &cobra.Command{
		Use:   "mkluxfs <image-path>",
		Short: "Format a luxfs disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, pass --force to overwrite", path)
			}

			k := kernel.NewKernel(sectors, kernel.LayoutUS, kernel.NewHeadlessCellSink())
			if err := k.Boot(); err != nil {
				return fmt.Errorf("format: %w", err)
			}
			if err := os.WriteFile(path, k.SaveDiskImage(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Printf("mkluxfs: wrote %s (%d sectors)\n", path, sectors)
			return nil
		},
	}
	root.Flags().Uint32Var(&sectors, "sectors", kernel.DefaultDiskSectors, "sectors to allocate")
	root.Flags().BoolVar(&force, "force", false, "overwrite an existing image")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
