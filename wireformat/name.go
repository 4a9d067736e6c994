package wireformat

import "bytes"

// Name is a parsed OPEN/namespace-operation payload: drive number, primary
// and optional secondary name, file type, access mode and REL record
// length, plus a recognized command tag when the payload is actually a
// command string (e.g. "N:diskname,id" for FORMAT). Parsed in place from
// a command tail per spec §3.
type Name struct {
	Drive      uint8
	Primary    []byte
	Secondary  []byte
	Type       FileType
	Access     Access
	RecordLen  uint8
	CommandTag string
}

// ParseName parses the payload of an OPEN-family or namespace command.
// The wire form is "[<drive>:][<secondary>=]<name>[,<type>[,<access>]]",
// the optional "<secondary>=" prefix naming the MOVE/COPY target,
// following CBM DOS convention.
func ParseName(payload []byte) Name {
	n := Name{Drive: UnusedDrive, Type: FileSEQ}

	if len(payload) == 0 {
		return n
	}

	// Drive prefix: a single ASCII digit followed by ':'.
	rest := payload
	if len(rest) >= 2 && rest[0] >= '0' && rest[0] <= '9' && rest[1] == ':' {
		n.Drive = rest[0] - '0'
		rest = rest[2:]
	}

	parts := bytes.Split(rest, []byte{','})
	if len(parts) == 0 {
		return n
	}

	// First part may itself carry "secondary=name" for MOVE/COPY targets.
	if eq := bytes.IndexByte(parts[0], '='); eq >= 0 {
		n.Secondary = parts[0][:eq]
		n.Primary = parts[0][eq+1:]
	} else {
		n.Primary = parts[0]
	}

	for _, p := range parts[1:] {
		if len(p) == 0 {
			continue
		}
		switch p[0] {
		case 'S', 's':
			n.Type = FileSEQ
		case 'P', 'p':
			n.Type = FilePRG
		case 'U', 'u':
			n.Type = FileUSR
		case 'L', 'l':
			n.Type = FileREL
			if len(p) > 1 {
				n.RecordLen = p[1]
			}
		case 'D', 'd':
			n.Type = FileDEL
		case 'R', 'r':
			n.Access = AccessRead
		case 'W', 'w':
			n.Access = AccessWrite
		case 'A', 'a':
			n.Access = AccessAppend
		}
	}

	return n
}

// BlockParams is the fixed 7-byte BLOCK payload: {drive, subcmd, track(16),
// sector(16), channel} per spec §3/§6.
type BlockParams struct {
	Drive   uint8
	Subcmd  BlockSubcmd
	Track   uint16
	Sector  uint16
	Channel int8
}

// BlockSubcmd enumerates the U1/U2/B-A/B-F subcommands carried in a BLOCK
// payload.
type BlockSubcmd uint8

const (
	BlockU1 BlockSubcmd = 1 // read sector, raw
	BlockU2 BlockSubcmd = 2 // write sector, raw
	BlockBA BlockSubcmd = 3 // allocate BAM block
	BlockBF BlockSubcmd = 4 // free BAM block
)

// ParseBlockParams decodes a 7-byte BLOCK payload.
func ParseBlockParams(payload []byte) (BlockParams, bool) {
	if len(payload) < 7 {
		return BlockParams{}, false
	}
	return BlockParams{
		Drive:   payload[0],
		Subcmd:  BlockSubcmd(payload[1]),
		Track:   uint16(payload[2]) | uint16(payload[3])<<8,
		Sector:  uint16(payload[4]) | uint16(payload[5])<<8,
		Channel: int8(payload[6]),
	}, true
}

// Bytes encodes the BLOCK payload back to its 7-byte wire form.
func (b BlockParams) Bytes() []byte {
	return []byte{
		b.Drive,
		uint8(b.Subcmd),
		uint8(b.Track), uint8(b.Track >> 8),
		uint8(b.Sector), uint8(b.Sector >> 8),
		uint8(b.Channel),
	}
}
