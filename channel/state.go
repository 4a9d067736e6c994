package channel

// State is the channel's pipelining stage (spec §4.3). Named after the
// original's PULL_* constants, translated into a Go enum the way the
// teacher names its SDO_STATE_* constants.
type State int

const (
	StateClosed  State = iota
	StateOpen          // freshly opened, no data pulled
	StatePreload       // first read in flight
	StateOneConv       // first buffer arrived, may need directory conversion
	StateOneRead       // one buffer readable, other unused
	StatePull2nd       // second read in flight while first still has data
	StateTwoConv       // second buffer arrived, may need conversion
	StateTwoRead       // both buffers readable
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StatePreload:
		return "PRELOAD"
	case StateOneConv:
		return "ONECONV"
	case StateOneRead:
		return "ONEREAD"
	case StatePull2nd:
		return "PULL2ND"
	case StateTwoConv:
		return "TWOCONV"
	case StateTwoRead:
		return "TWOREAD"
	default:
		return "UNKNOWN"
	}
}
