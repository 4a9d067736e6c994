package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify IMAGE...",
	Short: "Print the geometry xd2031 would assign to each image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			img, err := loadImage(path)
			if err != nil {
				return err
			}
			tag := "no error table"
			if img.ErrorTable != nil {
				tag = "with error table"
			}
			fmt.Printf("%s: %s, %d blocks, %s\n", path, img.Geometry.Kind, img.Geometry.Blocks, tag)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}
