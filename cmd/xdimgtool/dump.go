package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xd2031/core/diskimage"
)

var dumpCmd = &cobra.Command{
	Use:   "dump IMAGE NAME",
	Short: "Hexdump one file's contents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := loadImage(args[0])
		if err != nil {
			return err
		}
		entries, err := img.Directory()
		if err != nil {
			return err
		}

		var found *diskimage.DirEntry
		for i := range entries {
			if string(entries[i].Name) == args[1] {
				found = &entries[i]
				break
			}
		}
		if found == nil {
			return fmt.Errorf("xdimgtool: %s: no such file in %s", args[1], args[0])
		}

		data, err := img.ReadFile(int(found.Track), int(found.Sector))
		if err != nil {
			return err
		}
		hexdump(data)
		return nil
	},
}

func hexdump(data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Printf("%04x  ", off)
		for i := off; i < end; i++ {
			fmt.Printf("%02x ", data[i])
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
