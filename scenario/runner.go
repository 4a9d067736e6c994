package scenario

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xd2031/core/channel"
	"github.com/xd2031/core/packet"
)

// Result records the outcome of one step.
type Result struct {
	Step    Step
	Passed  bool
	GotCmd  byte
	GotData []byte
	Err     error
}

// Run drives every step of sc against provider in order, returning early
// only when a step's request packet cannot be built. A step whose
// submission fails is recorded with Err, and a step whose reply
// mismatches its expectation is recorded as failed; neither aborts the
// run, matching
// testrunner.c's behavior of running the whole script and reporting all
// failures at the end.
func Run(provider channel.Provider, sc *Scenario) ([]Result, error) {
	results := make([]Result, 0, len(sc.Steps))

	for _, step := range sc.Steps {
		req, err := packet.New(step.Cmd, step.Channel, step.Payload)
		if err != nil {
			return results, fmt.Errorf("scenario: step %s: %w", step.Name, err)
		}

		reply, err := submitSync(provider, step.Channel, req)
		if err != nil {
			results = append(results, Result{Step: step, Err: err})
			log.WithField("step", step.Name).Warnf("scenario: submit failed: %v", err)
			continue
		}

		passed := step.Matches(reply.Cmd, reply.Payload)
		results = append(results, Result{
			Step:    step,
			Passed:  passed,
			GotCmd:  uint8(reply.Cmd),
			GotData: reply.Payload,
		})
		if !passed {
			log.WithField("step", step.Name).Warn("scenario: reply did not match expectation")
		}
	}

	return results, nil
}

// submitSync blocks a SubmitCall into a synchronous call.
func submitSync(provider channel.Provider, channelID int8, req packet.Packet) (packet.Packet, error) {
	done := make(chan struct{})
	var reply packet.Packet
	var callErr error

	err := provider.SubmitCall(channelID, req, func(r packet.Packet, e error) {
		reply, callErr = r, e
		close(done)
	})
	if err != nil {
		return packet.Packet{}, err
	}
	<-done
	return reply, callErr
}

// AllPassed reports whether every result in results passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil || !r.Passed {
			return false
		}
	}
	return true
}
