// Command xdimgtool inspects and repairs CBM disk images: identify a
// file's geometry, list its directory, scan its files for structural
// integrity problems, dump a file's contents, or merge several copies
// of one disk into a repaired image.
//
// Grounded in original_source/imgtool/imgtool.c, rebuilt as a cobra CLI
// the way the pack's aiSzzPL-retroio/cmd tools are structured.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xdimgtool",
	Short: "Inspect and repair CBM disk images",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
