// Package diskimage implements the CBM disk-image codec (C5): geometry
// tables, directory access, link-chain and side-sector integrity
// scanning, and merge-repair across multiple images of one disk. It does
// not read or write the BAM.
//
// Grounded in original_source/pcserver/diskimgs.c/.h (geometry tables
// and LBA functions) and original_source/imgtool/imgtool.c + relfiles.c
// (directory walk, link-chain validation, side-sector verification,
// merge-repair).
package diskimage

import log "github.com/sirupsen/logrus"

// Kind identifies one of the five supported CBM disk-image types.
type Kind uint8

const (
	D64 Kind = 64
	D71 Kind = 71
	D80 Kind = 80
	D81 Kind = 81
	D82 Kind = 82
)

func (k Kind) String() string {
	switch k {
	case D64:
		return "d64"
	case D71:
		return "d71"
	case D80:
		return "d80"
	case D81:
		return "d81"
	case D82:
		return "d82"
	default:
		return "unknown"
	}
}

// lba64 returns the logical block address for track/sector on a 35-track
// single-sided image, or -1 for an out-of-range t/s.
func lba64(t, s int) int {
	switch {
	case s < 0 || t < 1:
		return -1
	case t <= 17:
		if s >= 21 {
			return -1
		}
		return s + (t-1)*21
	case t <= 24:
		if s >= 19 {
			return -1
		}
		return s + 17*21 + (t-18)*19
	case t <= 30:
		if s >= 18 {
			return -1
		}
		return s + 17*21 + 7*19 + (t-25)*18
	case t <= 35:
		if s >= 17 {
			return -1
		}
		return s + 17*21 + 7*19 + 6*18 + (t-31)*17
	default:
		return -1
	}
}

func lba71(t, s int) int {
	if t < 36 {
		return lba64(t, s)
	}
	lba := lba64(t-35, s)
	if lba < 0 {
		return -1
	}
	return 683 + lba
}

func lba80(t, s int) int {
	switch {
	case s < 0 || t < 1:
		return -1
	case t <= 39:
		if s >= 29 {
			return -1
		}
		return s + (t-1)*29
	case t <= 53:
		if s >= 27 {
			return -1
		}
		return s + 39*29 + (t-40)*27
	case t <= 64:
		if s >= 25 {
			return -1
		}
		return s + 39*29 + 14*27 + (t-54)*25
	case t <= 77:
		if s >= 23 {
			return -1
		}
		return s + 39*29 + 14*27 + 11*25 + (t-65)*23
	default:
		return -1
	}
}

func lba82(t, s int) int {
	if t < 78 {
		return lba80(t, s)
	}
	lba := lba80(t-77, s)
	if lba < 0 {
		return -1
	}
	return 2083 + lba
}

func lba81(t, s int) int {
	if s < 0 || s > 39 || t < 1 || t > 80 {
		return -1
	}
	return s + (t-1)*40
}

// Geometry describes one disk-image format: its track/sector LBA
// mapping, the directory track, and its total block count.
type Geometry struct {
	Kind      Kind
	Tracks    uint8 // highest absolute track number (both sides, for D71/D82)
	Sectors   uint8 // max sectors per track, across any zone
	Sides     uint8
	Blocks    int
	RelBlocks int  // max REL file size in blocks
	HasSSB    bool // has a super side sector (D81 only)
	DirTrack  uint8
	lba       func(t, s int) int
}

// LBA returns the logical block address of track t, sector s, or -1 if
// out of range for this geometry.
func (g Geometry) LBA(t, s int) int {
	return g.lba(t, s)
}

var (
	GeometryD64 = Geometry{Kind: D64, Tracks: 35, Sectors: 21, Sides: 1, Blocks: 683, RelBlocks: 706, DirTrack: 18, lba: lba64}
	GeometryD71 = Geometry{Kind: D71, Tracks: 70, Sectors: 21, Sides: 2, Blocks: 1366, RelBlocks: 706, DirTrack: 18, lba: lba71}
	GeometryD81 = Geometry{Kind: D81, Tracks: 80, Sectors: 40, Sides: 1, Blocks: 3200, RelBlocks: 3026, HasSSB: true, DirTrack: 40, lba: lba81}
	GeometryD80 = Geometry{Kind: D80, Tracks: 77, Sectors: 29, Sides: 1, Blocks: 2083, RelBlocks: 726, DirTrack: 39, lba: lba80}
	GeometryD82 = Geometry{Kind: D82, Tracks: 154, Sectors: 29, Sides: 2, Blocks: 4166, RelBlocks: 4126, DirTrack: 39, lba: lba82}
)

// Identify picks a geometry purely by file size, matching either
// blocks*256 (no error table) or blocks*257 (error table appended), per
// spec.md §4.5.1.
func Identify(filesize int) (g Geometry, hasErrorTable bool, ok bool) {
	for _, cand := range []Geometry{GeometryD64, GeometryD71, GeometryD80, GeometryD82, GeometryD81} {
		if filesize == cand.Blocks*256 {
			return cand, false, true
		}
		if filesize == cand.Blocks*256+cand.Blocks {
			return cand, true, true
		}
	}
	log.WithField("component", "diskimage").Warnf("identify: %d bytes does not match any known geometry", filesize)
	return Geometry{}, false, false
}
