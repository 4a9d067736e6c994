package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xd2031/core/diskimage"
)

var scanFilemask string

var scanCmd = &cobra.Command{
	Use:   "scan IMAGE",
	Short: "Check an image's files for link-chain and side-sector problems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := loadImage(args[0])
		if err != nil {
			return err
		}
		mask := scanFilemask
		warnings, err := diskimage.NewScanner(img, nil).ScanAll(func(name []byte) bool {
			return nameMatches(mask, name)
		})
		if err != nil {
			return err
		}
		if len(warnings) == 0 {
			fmt.Println("no problems found")
			return nil
		}
		for _, w := range warnings {
			fmt.Printf("%s: %s\n", w.File, w.Message)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanFilemask, "mask", "M", "*", "process only files matching mask")
	rootCmd.AddCommand(scanCmd)
}
