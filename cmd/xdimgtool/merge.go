package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xd2031/core/diskimage"
)

var (
	mergeOutput   string
	mergeWeakCode uint8
	mergeVerbose  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge IMAGE...",
	Short: "Merge-repair several copies of one disk into a single image",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		images := make([]*diskimage.Image, 0, len(args))
		for _, path := range args {
			img, err := loadImage(path)
			if err != nil {
				return err
			}
			images = append(images, img)
		}

		merged, weak, err := diskimage.Merge(images, mergeWeakCode)
		if err != nil {
			return err
		}
		if mergeVerbose {
			fmt.Printf("merged %d images, %d weak blocks\n", len(images), len(weak))
		}
		if mergeOutput == "" {
			return fmt.Errorf("xdimgtool: merge requires -o output")
		}
		return writeImage(mergeOutput, merged)
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output image filename")
	mergeCmd.Flags().Uint8VarP(&mergeWeakCode, "weak-code", "W", 0x01, "error-table code to tag weak blocks with")
	mergeCmd.Flags().BoolVarP(&mergeVerbose, "verbose", "v", false, "more verbose output")
	rootCmd.AddCommand(mergeCmd)
}
