package diskimage

import (
	"fmt"

	"github.com/xd2031/core/wireformat"
)

// dirEntrySize is the size of one directory slot; 8 slots per 256-byte
// directory block, the first slot also carrying the block-level link
// (spec.md's directory block layout, §3).
const dirEntrySize = 32

// DirEntry is one parsed directory slot.
type DirEntry struct {
	Type         wireformat.FileType
	Closed       bool
	Locked       bool
	Track        uint8
	Sector       uint8
	Name         []byte // PETSCII as stored, A0-padded trimmed
	RelSideTrack uint8
	RelSideSect  uint8
	RecordLen    uint8
	SizeBlocks   uint16 // file size in 254-byte blocks
}

// Image is a fully loaded disk image: raw sector data addressed by LBA,
// plus an optional parallel error table (one byte per block).
type Image struct {
	Geometry   Geometry
	Data       []byte // Geometry.Blocks * 256 bytes, in LBA order
	ErrorTable []byte // len == Geometry.Blocks if present, else nil
}

// New builds an Image from raw bytes already identified against g.
func New(g Geometry, data []byte, errorTable []byte) (*Image, error) {
	if len(data) != g.Blocks*256 {
		return nil, fmt.Errorf("diskimage: data length %d does not match %s geometry (%d blocks)", len(data), g.Kind, g.Blocks)
	}
	if errorTable != nil && len(errorTable) != g.Blocks {
		return nil, fmt.Errorf("diskimage: error table length %d does not match %d blocks", len(errorTable), g.Blocks)
	}
	return &Image{Geometry: g, Data: data, ErrorTable: errorTable}, nil
}

// Block returns the 256-byte sector at track t, sector s.
func (img *Image) Block(t, s int) ([]byte, error) {
	lba := img.Geometry.LBA(t, s)
	if lba < 0 || lba >= img.Geometry.Blocks {
		return nil, fmt.Errorf("diskimage: %d/%d is out of range for %s", t, s, img.Geometry.Kind)
	}
	off := lba * 256
	return img.Data[off : off+256], nil
}

// isBadBlock reports whether the error table marks lba bad: 1 ("no
// error") and 0 (never verified) are not bad; any other code, or an lba
// outside the table, is bad. Without a table no block is bad.
func (img *Image) isBadBlock(lba int) bool {
	if img.ErrorTable == nil {
		return false
	}
	if lba < 0 || lba >= len(img.ErrorTable) {
		return true
	}
	code := img.ErrorTable[lba]
	return code != 0 && code != 1
}

// Directory walks the directory chain starting at Geometry.DirTrack,
// sector 0, returning every occupied slot (spec.md §4.5.3's directory
// walk, grounded in imgtool.c's dirwalk).
func (img *Image) Directory() ([]DirEntry, error) {
	var entries []DirEntry
	t, s := int(img.Geometry.DirTrack), 0
	visited := map[[2]int]bool{}

	for t != 0 {
		key := [2]int{t, s}
		if visited[key] {
			return entries, fmt.Errorf("diskimage: directory chain loops back to %d/%d", t, s)
		}
		visited[key] = true

		blk, err := img.Block(t, s)
		if err != nil {
			return entries, err
		}
		nextT, nextS := int(blk[0]), int(blk[1])

		for i := 0; i < 8; i++ {
			raw := blk[i*dirEntrySize : (i+1)*dirEntrySize]
			typeByte := raw[2]
			if typeByte == 0 && raw[3] == 0 && raw[4] == 0 {
				continue // unused slot
			}
			name := raw[5:21]
			end := 16
			for end > 0 && name[end-1] == 0xA0 {
				end--
			}
			entries = append(entries, DirEntry{
				Type:         wireformat.FileType(typeByte & 0x0F),
				Closed:       typeByte&0x80 != 0,
				Locked:       typeByte&0x40 != 0,
				Track:        raw[3],
				Sector:       raw[4],
				Name:         append([]byte{}, name[:end]...),
				RelSideTrack: raw[21],
				RelSideSect:  raw[22],
				RecordLen:    raw[23],
				SizeBlocks:   uint16(raw[30]) | uint16(raw[31])<<8,
			})
		}

		t, s = nextT, nextS
	}
	return entries, nil
}

// ReadFile walks the forward link chain for a PRG/SEQ/USR entry starting
// at t/s, returning the concatenated payload (each block's 2-byte link
// header stripped, the last block's second link byte giving the valid
// byte count + 1).
func (img *Image) ReadFile(t, s int) ([]byte, error) {
	var out []byte
	visited := map[[2]int]bool{}
	for t != 0 {
		key := [2]int{t, s}
		if visited[key] {
			return out, fmt.Errorf("diskimage: file chain loops back to %d/%d", t, s)
		}
		visited[key] = true

		blk, err := img.Block(t, s)
		if err != nil {
			return out, err
		}
		nextT, nextS := int(blk[0]), int(blk[1])
		if nextT == 0 {
			// nextS is the 1-based end offset of valid data within the
			// 256-byte block; data starts at offset 2 past the link.
			validBytes := nextS - 1
			if validBytes < 0 {
				validBytes = 0
			}
			if validBytes > 254 {
				validBytes = 254
			}
			out = append(out, blk[2:2+validBytes]...)
		} else {
			out = append(out, blk[2:]...)
		}
		t, s = nextT, nextS
	}
	return out, nil
}
