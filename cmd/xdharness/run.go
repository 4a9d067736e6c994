package main

import (
	"fmt"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"github.com/xd2031/core/scenario"
	"github.com/xd2031/core/transport"
	"github.com/xd2031/core/transport/socket488"
)

func runHarness(cmd *cobra.Command, args []string) error {
	conn, err := socket488.Dial(network, address)
	if err != nil {
		return fmt.Errorf("xdharness: %w", err)
	}
	defer conn.Disconnect()

	mux, err := transport.NewMultiplexer(conn, "xdharness")
	if err != nil {
		return fmt.Errorf("xdharness: %w", err)
	}

	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if _, err := mux.BootSync(); err != nil {
		return fmt.Errorf("xdharness: boot sync failed: %w", err)
	}

	provider := newMuxProvider(mux)

	failed := 0
	for _, path := range args {
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}

		results, err := scenario.Run(provider, sc)
		if err != nil {
			return err
		}

		for _, r := range results {
			status := "PASS"
			if r.Err != nil {
				status = fmt.Sprintf("ERROR (%v)", r.Err)
			} else if !r.Passed {
				status = "FAIL"
			}
			fmt.Printf("%s: %s: %s\n", path, r.Step.Name, status)
			if r.Err != nil || !r.Passed {
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("xdharness: %d step(s) failed", failed)
	}
	return nil
}
