package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xd2031/core/diskimage"
	"github.com/xd2031/core/diskimage/dirconv"
	"github.com/xd2031/core/petscii"
)

var catalogFilemask string

var catalogCmd = &cobra.Command{
	Use:   "catalog IMAGE",
	Short: "Show the directory listing of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := loadImage(args[0])
		if err != nil {
			return err
		}
		entries, err := img.Directory()
		if err != nil {
			return err
		}

		used := 0
		for _, e := range entries {
			if !nameMatches(catalogFilemask, e.Name) {
				continue
			}
			line, err := dirconv.RenderLine(dirconv.Entry{
				Kind:   dirconv.KindFile,
				Length: uint32(e.SizeBlocks) * 256,
				Name:   petscii.StringToASCII(e.Name),
				Attrs: dirconv.Attrs{
					Type:     e.Type,
					Locked:   e.Locked,
					Splat:    !e.Closed,
					Estimate: true,
				},
			}, 0)
			if err != nil {
				return err
			}
			fmt.Println(renderedText(line))
			used += int(e.SizeBlocks)
		}

		free := freeBlocks(img, entries)
		line, err := dirconv.RenderLine(dirconv.Entry{Kind: dirconv.KindFreeBlocks, Length: uint32(free)}, 0)
		if err != nil {
			return err
		}
		fmt.Println(renderedText(line))
		return nil
	},
}

// freeBlocks is a coarse count: total blocks minus a placeholder charge
// equal to the directory track's number minus every entry's declared
// block count, good enough for a catalog footer, not a BAM
// reconciliation.
func freeBlocks(img *diskimage.Image, entries []diskimage.DirEntry) int {
	used := int(img.Geometry.DirTrack) // placeholder charge for the dir track itself
	for _, e := range entries {
		used += int(e.SizeBlocks)
	}
	free := img.Geometry.Blocks - used
	if free < 0 {
		free = 0
	}
	return free
}

// renderedText strips the BASIC line-link/line-number header and the
// trailing null so the terminal shows only the human-readable text.
func renderedText(line []byte) string {
	start := 4
	if len(line) > 0 && line[0] == 0x01 && len(line) > 1 && line[1] == 0x04 {
		start = 6
	}
	end := len(line)
	for end > start && line[end-1] == 0 {
		end--
	}
	return string(line[start:end])
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogFilemask, "mask", "M", "*", "process only files matching mask")
	rootCmd.AddCommand(catalogCmd)
}
