// Package petscii converts between PETSCII, the character set CBM
// devices speak on the wire, and ASCII, the character set providers and
// the host side use.
//
// Grounded in original_source/common/petscii.h (petscii_to_ascii,
// ascii_to_petscii) and original_source/firmware/petscii.c.
package petscii

// ToASCII converts a single PETSCII byte to its ASCII equivalent.
func ToASCII(v byte) byte {
	switch {
	case v < 0x41:
		return v
	case v < 0x5b:
		return v + 0x20 // lower PETSCII to lower ASCII
	case v < 0x61:
		return v
	case v < 0x7b:
		return v - 0x20 // upper C64 PETSCII to upper ASCII
	case v < 0xc1:
		return v
	case v < 0xdb:
		return v & 0x7f // upper PET PETSCII to upper ASCII
	default:
		return v
	}
}

// ToPETSCII converts a single ASCII byte to its PETSCII equivalent.
func ToPETSCII(v byte) byte {
	switch {
	case v < 0x41:
		return v
	case v < 0x5b:
		return v + 0x80 // upper ASCII to upper PETSCII
	case v < 0x61:
		return v
	case v < 0x7b:
		return v - 0x20 // lower ASCII to lower C64/PET PETSCII
	default:
		return v
	}
}

// StringToASCII converts a PETSCII byte string to ASCII.
func StringToASCII(s []byte) []byte {
	out := make([]byte, len(s))
	for i, v := range s {
		out[i] = ToASCII(v)
	}
	return out
}

// StringToPETSCII converts an ASCII byte string to PETSCII.
func StringToPETSCII(s []byte) []byte {
	out := make([]byte, len(s))
	for i, v := range s {
		out[i] = ToPETSCII(v)
	}
	return out
}

// Charset is the channel.CharsetTag value providers use to advertise
// PETSCII as their native charset (spec §4.3's provider contract).
const Charset = "petscii"
