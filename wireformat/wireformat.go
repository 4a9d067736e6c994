// Package wireformat defines the framed request/response protocol exchanged
// between an XD2031 device and its server: the FS_* command set, the
// one-byte error codes returned on the status channel, and the fixed
// header layout shared by every packet.
package wireformat

// Header byte offsets within a packet, payload begins at OffsetData.
const (
	OffsetCmd  = 0
	OffsetLen  = 1
	OffsetChan = 2
	OffsetData = 3

	// HeaderLen is the number of header bytes preceding the payload.
	HeaderLen = OffsetData

	// MaxPayload is the conventional negotiated maximum payload size; a
	// sender must reject larger payloads before framing them (spec §4.1).
	MaxPayload = 128
)

// Reserved channel ids, routed outside the normal channel pool.
const (
	ChanTerm   int8 = -2 // 0xfe: terminal/log output device -> server
	ChanSetOpt int8 = -3 // 0xfd: option string server -> device
	ChanNone   int8 = -1 // no channel / free slot marker
)

// Command is the closed FS_* wire command set (spec §3/§6).
type Command uint8

const (
	Sync Command = 127 // FS_SYNC: resync marker, reserved, never a valid cmd

	Term Command = 0

	OpenRD     Command = 1
	OpenWR     Command = 2
	OpenRW     Command = 3
	OpenOW     Command = 4
	OpenAP     Command = 5
	OpenDR     Command = 6
	OpenDirect Command = 7 // '#' direct buffer open

	Rename Command = 8 // MOVE
	Copy   Command = 9
	Delete Command = 10
	Format Command = 11
	Chkdsk Command = 12
	Close  Command = 13
	Rmdir  Command = 14
	Mkdir  Command = 15
	Chdir  Command = 16
	Assign Command = 17
	Setopt Command = 18

	Position Command = 19
	Block    Command = 20

	Read     Command = 21
	Write    Command = 22
	WriteEOF Command = 23
	Data     Command = 24
	DataEOF  Command = 25

	Reply Command = 26

	Term2    Command = 27 // device -> server terminal output (routed on ChanTerm)
	Reset    Command = 28
	Info     Command = 29
	Charset  Command = 30
)

func (c Command) String() string {
	switch c {
	case Sync:
		return "SYNC"
	case Term, Term2:
		return "TERM"
	case OpenRD:
		return "OPEN_RD"
	case OpenWR:
		return "OPEN_WR"
	case OpenRW:
		return "OPEN_RW"
	case OpenOW:
		return "OPEN_OW"
	case OpenAP:
		return "OPEN_AP"
	case OpenDR:
		return "OPEN_DR"
	case OpenDirect:
		return "OPEN_DIRECT"
	case Rename:
		return "MOVE"
	case Copy:
		return "COPY"
	case Delete:
		return "DELETE"
	case Format:
		return "FORMAT"
	case Chkdsk:
		return "CHKDSK"
	case Close:
		return "CLOSE"
	case Rmdir:
		return "RMDIR"
	case Mkdir:
		return "MKDIR"
	case Chdir:
		return "CHDIR"
	case Assign:
		return "ASSIGN"
	case Setopt:
		return "SETOPT"
	case Position:
		return "POSITION"
	case Block:
		return "BLOCK"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case WriteEOF:
		return "WRITE_EOF"
	case Data:
		return "DATA"
	case DataEOF:
		return "DATA_EOF"
	case Reply:
		return "REPLY"
	case Reset:
		return "RESET"
	case Info:
		return "INFO"
	case Charset:
		return "CHARSET"
	default:
		return "UNKNOWN"
	}
}

// IsEOF reports whether cmd marks the last packet of a data stream.
func (c Command) IsEOF() bool {
	return c == DataEOF || c == WriteEOF
}

// ErrorCode is the one-byte error returned in a REPLY packet, mapped to the
// CBM DOS status-channel message by the bus frontend.
type ErrorCode uint8

const (
	ErrOK                ErrorCode = 0
	ErrScratched         ErrorCode = 1
	ErrSyntaxUnknown     ErrorCode = 30
	ErrSyntaxNoName      ErrorCode = 34
	ErrWriteProtect      ErrorCode = 26
	ErrFileNotFound      ErrorCode = 39
	ErrRecordNotPresent  ErrorCode = 50
	ErrOverflowInRecord  ErrorCode = 51
	ErrFileExists        ErrorCode = 63
	ErrFileTypeMismatch  ErrorCode = 64
	ErrNoBlock           ErrorCode = 65
	ErrNoChannel         ErrorCode = 70
	ErrDirError          ErrorCode = 71
	ErrDiskFull          ErrorCode = 72
	ErrDosVersion        ErrorCode = 73
	ErrDriveNotReady     ErrorCode = 74
	ErrFault             ErrorCode = 255 // passthrough for generic/internal failures
)

func (e ErrorCode) Error() string {
	switch e {
	case ErrOK:
		return "ok"
	case ErrScratched:
		return "file scratched"
	case ErrSyntaxUnknown, ErrSyntaxNoName:
		return "syntax error"
	case ErrWriteProtect:
		return "write protect on"
	case ErrFileNotFound:
		return "file not found"
	case ErrRecordNotPresent:
		return "record not present"
	case ErrOverflowInRecord:
		return "overflow in record"
	case ErrFileExists:
		return "file exists"
	case ErrFileTypeMismatch:
		return "file type mismatch"
	case ErrNoBlock:
		return "no block"
	case ErrNoChannel:
		return "no channel"
	case ErrDirError:
		return "dir error"
	case ErrDiskFull:
		return "disk full"
	case ErrDosVersion:
		return "dos version"
	case ErrDriveNotReady:
		return "drive not ready"
	default:
		return "fault"
	}
}

// FileType enumerates the CBM file types carried in a name packet and a
// directory entry's low nibble.
type FileType uint8

const (
	FileDEL FileType = 0
	FileSEQ FileType = 1
	FilePRG FileType = 2
	FileUSR FileType = 3
	FileREL FileType = 4
	FileDIR FileType = 8
)

func (t FileType) String() string {
	switch t {
	case FileDEL:
		return "del"
	case FileSEQ:
		return "seq"
	case FilePRG:
		return "prg"
	case FileUSR:
		return "usr"
	case FileREL:
		return "rel"
	case FileDIR:
		return "dir"
	default:
		return "---"
	}
}

// Access is the requested open access mode in a name packet.
type Access uint8

const (
	AccessNone Access = 0
	AccessRead Access = 1
	AccessWrite Access = 2
	AccessAppend Access = 3
)

// UnusedDrive marks "no drive number given" in a name packet (spec §3).
const UnusedDrive uint8 = 0xFF
