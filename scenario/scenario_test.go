package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xd2031/core/channel"
	"github.com/xd2031/core/packet"
	"github.com/xd2031/core/wireformat"
)

const sample = `
[position]
cmd = 19
channel = 2
payload = 0102
expect_cmd = 26
expect_payload = 00
`

func TestLoadSourceParsesStep(t *testing.T) {
	sc, err := LoadSource([]byte(sample), "sample")
	require.NoError(t, err)
	require.Len(t, sc.Steps, 1)

	step := sc.Steps[0]
	assert.Equal(t, "position", step.Name)
	assert.Equal(t, wireformat.Command(19), step.Cmd)
	assert.Equal(t, int8(2), step.Channel)
	assert.Equal(t, []byte{0x01, 0x02}, step.Payload)
	assert.Equal(t, wireformat.Command(wireformat.Reply), step.ExpectCmd)
	assert.Equal(t, []byte{0x00}, step.ExpectPayload)
}

func TestStepMatchesHonorsMask(t *testing.T) {
	step := Step{
		ExpectCmd:     wireformat.Reply,
		ExpectPayload: []byte{0x01, 0x99, 0x03},
		Mask:          []byte{1, 0, 1},
	}
	assert.True(t, step.Matches(wireformat.Reply, []byte{0x01, 0xFF, 0x03}))
	assert.False(t, step.Matches(wireformat.Reply, []byte{0x01, 0xFF, 0x04}))
}

// echoProvider replies to every SubmitCall with a Reply packet carrying
// the request payload back verbatim.
type echoProvider struct{}

func (echoProvider) SubmitCall(channelID int8, tx packet.Packet, cb channel.SubmitCallback) error {
	reply, err := packet.New(wireformat.Reply, channelID, tx.Payload)
	if err != nil {
		return err
	}
	cb(reply, nil)
	return nil
}

func (echoProvider) Submit(channelID int8, tx packet.Packet) error { return nil }

func TestRunReportsPassAndFail(t *testing.T) {
	sc := &Scenario{
		Name: "t",
		Steps: []Step{
			{Name: "ok", Cmd: wireformat.Position, Channel: 1, Payload: []byte{1}, ExpectCmd: wireformat.Reply, ExpectPayload: []byte{1}},
			{Name: "bad", Cmd: wireformat.Position, Channel: 1, Payload: []byte{1}, ExpectCmd: wireformat.Reply, ExpectPayload: []byte{2}},
		},
	}

	results, err := Run(echoProvider{}, sc)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.False(t, AllPassed(results))
}
