// Package scenario loads and runs integration-test scripts against the
// wire protocol: an ordered list of steps, each sending a packet and
// comparing the reply against an expected payload and an optional byte
// mask for "don't care" positions.
//
// Grounded in original_source/testrunner/script.c (line-oriented hex/
// string scripts with scriptlets) and original_source/fwtests/
// testrunner.c (the driver that runs them end to end), reworked onto
// gopkg.in/ini.v1 the way od_parser.go loads EDS files section by
// section.
package scenario

import (
	"encoding/hex"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/xd2031/core/wireformat"
)

// Step is one scripted request/response exchange.
type Step struct {
	Name          string
	Cmd           wireformat.Command
	Channel       int8
	Payload       []byte
	ExpectCmd     wireformat.Command
	ExpectPayload []byte
	// Mask, if set, must be the same length as ExpectPayload; a zero
	// byte at position i means "ignore this byte of the reply" (the
	// original's CMD_COMMENT/scr_ignore scriptlet).
	Mask []byte
}

// Scenario is a named, ordered sequence of steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// Load reads an INI-formatted scenario file: one section per step, in
// file order, keyed by the section name.
func Load(path string) (*Scenario, error) {
	return LoadSource(path, path)
}

// LoadSource parses an INI scenario from source (a file path, []byte, or
// io.Reader, matching ini.Load's accepted inputs), labeling the result
// name for diagnostics.
func LoadSource(source any, name string) (*Scenario, error) {
	f, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", name, err)
	}

	sc := &Scenario{Name: name}
	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		step, err := stepFromSection(section)
		if err != nil {
			return nil, fmt.Errorf("scenario: section %s: %w", section.Name(), err)
		}
		sc.Steps = append(sc.Steps, step)
	}
	return sc, nil
}

func stepFromSection(section *ini.Section) (Step, error) {
	step := Step{Name: section.Name()}

	cmd, err := section.Key("cmd").Uint()
	if err != nil {
		return step, fmt.Errorf("cmd: %w", err)
	}
	step.Cmd = wireformat.Command(cmd)

	step.Channel = int8(section.Key("channel").MustInt(0))

	payload, err := hexKey(section, "payload")
	if err != nil {
		return step, err
	}
	step.Payload = payload

	if section.HasKey("expect_cmd") {
		expectCmd, err := section.Key("expect_cmd").Uint()
		if err != nil {
			return step, fmt.Errorf("expect_cmd: %w", err)
		}
		step.ExpectCmd = wireformat.Command(expectCmd)
	}

	expectPayload, err := hexKey(section, "expect_payload")
	if err != nil {
		return step, err
	}
	step.ExpectPayload = expectPayload

	mask, err := hexKey(section, "mask")
	if err != nil {
		return step, err
	}
	if mask != nil && len(mask) != len(step.ExpectPayload) {
		return step, fmt.Errorf("mask length %d does not match expect_payload length %d", len(mask), len(step.ExpectPayload))
	}
	step.Mask = mask

	return step, nil
}

func hexKey(section *ini.Section, key string) ([]byte, error) {
	if !section.HasKey(key) {
		return nil, nil
	}
	raw := section.Key(key).String()
	if raw == "" {
		return []byte{}, nil
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return decoded, nil
}

// Matches reports whether got matches the step's expected reply,
// honoring Mask positions as "don't care".
func (s Step) Matches(gotCmd wireformat.Command, gotPayload []byte) bool {
	if s.ExpectCmd != 0 && gotCmd != s.ExpectCmd {
		return false
	}
	if len(gotPayload) != len(s.ExpectPayload) {
		return false
	}
	for i, want := range s.ExpectPayload {
		if s.Mask != nil && s.Mask[i] == 0 {
			continue
		}
		if gotPayload[i] != want {
			log.WithFields(log.Fields{"step": s.Name, "pos": i, "want": want, "got": gotPayload[i]}).Debug("scenario: byte mismatch")
			return false
		}
	}
	return true
}
