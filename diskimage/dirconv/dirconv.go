// Package dirconv converts a provider's directory entries into the
// BASIC-program-listing lines a CBM LOAD"$" expects: a two-byte link
// address, a line number derived from the entry's byte length, and a
// quoted name followed by a type/attribute tail.
//
// Grounded in original_source/firmware/dirconverter.c
// (directory_converter), including its four-term fixed-point correction
// for converting 256-byte blocks into CBM DOS's 254-byte blocks.
package dirconv

import (
	"fmt"

	"github.com/xd2031/core/petscii"
	"github.com/xd2031/core/wireformat"
)

// MaxLineNumber caps the BASIC line number CBM DOS can display.
const MaxLineNumber = 65535

// EntryKind distinguishes the four directory line shapes the original
// protocol's FS_DIR_MOD_* byte carries (spec.md §4.5.2 names FIL/DIR in
// prose and mentions the header/trailer lines only in passing; this
// package promotes all four to first-class kinds per SPEC_FULL.md §5).
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
	KindDiskName
	KindFreeBlocks
)

// Attrs carries the FS_DIR_ATTR byte's bitfields, split from the on-disk
// entry's packed type byte (SPEC_FULL.md §5: "directory entry attribute
// byte split").
type Attrs struct {
	Type     wireformat.FileType
	Locked   bool
	Splat    bool // not closed ("*" in CBM DOS display)
	Estimate bool // length is already an exact 254-byte block count
}

// Entry is one directory entry ready for rendering.
type Entry struct {
	Kind   EntryKind
	Length uint32 // byte length (files) or raw block-free count (FreeBlocks)
	Name   []byte // ASCII; converted to PETSCII on render
	Attrs  Attrs
}

var fileTypeNames = [...]string{"del", "seq", "prg", "usr", "rel"}

// BlocksLineNumber computes the BASIC line number CBM DOS would show for
// a file of byte length length: blocks of 254 bytes, rounded up, derived
// from blocks of 256 bytes via the fixed-point correction
// len/254 ~= len/256 * (1 + 1/128 + 1/128^2 + 1/128^3 + 1/128^4).
// When estimate is true, the caller already supplied an exact 254-byte
// block count and the correction is skipped (the original's
// FS_DIR_ATTR_ESTIMATE shortcut).
func BlocksLineNumber(length uint32, estimate bool) uint16 {
	b0 := byte(length)
	b1 := byte(length >> 8)
	b2 := byte(length >> 16)
	b3 := byte(length >> 24)

	in0 := uint16(b0) | uint16(b1)<<8
	in1 := uint16(b1) | uint16(b2)<<8
	in2 := uint16(b2) | uint16(b3)<<8
	in3 := uint16(b3)

	if in3 > 0 {
		return MaxLineNumber
	}

	// add 253 so the leftover bytes in the remainder count as their own
	// block, propagating the carry through the 16-bit windows by hand
	in0 += 253
	if (in0>>8)&0xff != uint16(b1) {
		in1++
		if (in1>>8)&0xff != uint16(b2) {
			in2++
			if (in2>>8)&0xff != uint16(b3) {
				in3++
			}
		}
	}

	tmp0 := in0 & 0xff
	tmp1 := in1 & 0xff
	tmp2 := in2 & 0xff
	tmp3 := in3 & 0xff

	if !estimate {
		// 256/254 == 1 + 1/127; unroll 1/127 as 1/128 + 1/128^2 + 1/128^3 + 1/128^4 + ...
		tmp0 += (in0 >> 7) & 0xff
		tmp1 += (in1 >> 7) & 0xff
		tmp2 += (in2 >> 7) & 0xff
		tmp3 += (in3 >> 7) & 0xff

		tmp0 += ((in1 >> 6) & 0x03) + ((in2 << 2) & 0xfc)
		tmp1 += ((in2 >> 6) & 0x03) + ((in3 << 2) & 0xfc)
		tmp2 += (in3 >> 6) & 0x03

		tmp0 += ((in2 >> 5) & 0x07) + ((in3 << 3) & 0xf8)
		tmp1 += (in3 >> 5) & 0x07

		tmp0 += (in3 >> 4) & 0x0f

		tmp0 += 1 // account for the missing higher-order terms

		tmp1 += (tmp0 >> 8) & 0xff
		tmp2 += (tmp1 >> 8) & 0xff
		tmp3 += (tmp2 >> 8) & 0xff
	}

	if tmp3 > 0 {
		return MaxLineNumber
	}
	lineno := (tmp1 & 0xff) | ((tmp2 & 0xff) << 8)
	if lineno > MaxLineNumber {
		lineno = MaxLineNumber
	}
	return lineno
}

// RenderLine renders e as one BASIC program line, for drive used only as
// the disk name entry's line number (matching CBM DOS's "drive number in
// the header line" convention).
func RenderLine(e Entry, drive uint8) ([]byte, error) {
	var out []byte

	if e.Kind == KindDiskName {
		out = append(out, 0x01, 0x04) // load address $0401
	}
	out = append(out, 0x01, 0x01) // link address, overwritten on LOAD

	var lineno uint16
	switch e.Kind {
	case KindDiskName:
		lineno = uint16(drive)
	case KindFreeBlocks:
		lineno = MaxLineNumber
		if e.Length < MaxLineNumber {
			lineno = uint16(e.Length)
		}
	default:
		lineno = BlocksLineNumber(e.Length, e.Attrs.Estimate)
	}
	out = append(out, byte(lineno), byte(lineno>>8))

	switch e.Kind {
	case KindDiskName:
		out = append(out, 0x12) // reverse video for the header
	case KindFreeBlocks:
		// no number padding
	default:
		if lineno < 10 {
			out = append(out, ' ')
		}
		if lineno < 100 {
			out = append(out, ' ')
		}
		if lineno < 1000 {
			out = append(out, ' ')
		}
	}

	if e.Kind != KindFreeBlocks {
		out = append(out, '"')
		name := e.Name
		if len(name) > 16 {
			name = name[:16]
		}
		out = append(out, petscii.StringToPETSCII(name)...)
		out = append(out, '"')

		if e.Kind == KindDiskName {
			out = append(out, ' ')
			out = append(out, petscii.StringToPETSCII([]byte("sw"))...)
		} else {
			for i := len(name); i < 17; i++ {
				out = append(out, ' ')
			}
		}
	}

	switch e.Kind {
	case KindDir:
		out = append(out, petscii.StringToPETSCII([]byte("dir  "))...)
	case KindFile:
		if e.Attrs.Splat {
			out[len(out)-1] = '*'
		}
		ftype := byte(e.Attrs.Type)
		name := "---"
		if int(ftype) < len(fileTypeNames) {
			name = fileTypeNames[ftype]
		}
		out = append(out, petscii.StringToPETSCII([]byte(name))...)
		if e.Attrs.Locked {
			out = append(out, '<')
		} else {
			out = append(out, ' ')
		}
		out = append(out, ' ')
		if lineno > 10 {
			out = append(out, ' ')
		}
		if lineno > 100 {
			out = append(out, ' ')
		}
		if lineno > 1000 {
			out = append(out, ' ')
		}
	case KindFreeBlocks:
		out = append(out, petscii.StringToPETSCII([]byte("blocks free."))...)
		for i := 0; i < 13; i++ {
			out = append(out, ' ')
		}
		out = append(out, 0, 0) // BASIC end marker
	}

	out = append(out, 0)

	if len(out) > 255 {
		return nil, fmt.Errorf("dirconv: rendered line length %d exceeds buffer", len(out))
	}
	return out, nil
}
