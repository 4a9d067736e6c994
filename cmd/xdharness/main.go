// Command xdharness connects to a running xd2031-protocol endpoint over
// a socket488 transport and drives it through one or more scenario
// scripts, reporting pass/fail per step.
//
// Grounded in original_source/testrunner/pcrunner.c (the Unix-socket
// test runner) and fwrunner.c/firmware/main.c (the device-side
// counterpart it exercises), rebuilt as a cobra CLI over this module's
// transport/channel/scenario packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	network string
	address string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "xdharness SCRIPT...",
	Short: "Run scenario scripts against a live xd2031-protocol endpoint",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHarness,
}

func init() {
	rootCmd.Flags().StringVarP(&network, "network", "n", "unix", "dial network (unix, tcp)")
	rootCmd.Flags().StringVarP(&address, "address", "d", "/tmp/xd2031.socket", "address to dial")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace sent/received packets")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
