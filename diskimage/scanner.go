package diskimage

import (
	"fmt"

	"github.com/xd2031/core/wireformat"
)

// Side-sector layout offsets, named after the SSB_*/SSS_*/BLK_* macros
// in original_source/pcserver/diskimgs.h.
const (
	blkOffsetNextTrack  = 0
	blkOffsetNextSector = 1

	ssgSideSectorsMax = 6
	ssbIndexSectorMax = 120

	ssbOffsetSuper254   = 2
	sssOffsetSSBPointer = 3

	ssbOffsetSectorNum  = 2
	ssbOffsetRecordLen  = 3
	ssbOffsetSSG        = 4
	ssbOffsetSector     = 16
)

// Warning is one non-fatal integrity finding: a chain-length mismatch, a
// bad or weak block, or a side-sector inconsistency. Spec.md §4.5.3:
// "report mismatches as warnings, not errors."
type Warning struct {
	File    string
	Message string
}

// WeakBlocks marks LBAs that read differently across copies of an image
// (populated by Merge, consumed by a re-run Scanner per spec.md §4.5.4's
// closing note).
type WeakBlocks map[int]bool

// Scanner walks an image's directory and verifies each file's on-disk
// structure against its declared size and, for REL files, its
// side-sector chain.
type Scanner struct {
	Image *Image
	Weak  WeakBlocks
}

// NewScanner builds a scanner over img; weak may be nil.
func NewScanner(img *Image, weak WeakBlocks) *Scanner {
	return &Scanner{Image: img, Weak: weak}
}

// ScanAll walks every directory entry matching keep (nil keeps all) and
// returns the accumulated warnings.
func (sc *Scanner) ScanAll(keep func(name []byte) bool) ([]Warning, error) {
	entries, err := sc.Image.Directory()
	if err != nil {
		return nil, err
	}

	var warnings []Warning
	for _, e := range entries {
		if keep != nil && !keep(e.Name) {
			continue
		}
		switch e.Type {
		case wireformat.FileREL:
			warnings = append(warnings, sc.scanRel(e)...)
		case wireformat.FilePRG, wireformat.FileSEQ, wireformat.FileUSR:
			warnings = append(warnings, sc.scanChain(e)...)
		}
	}
	return warnings, nil
}

// scanChain implements spec.md §4.5.3's PRG/SEQ/USR check: walk the
// forward link chain, validating each T/S against the geometry and the
// error table, and compare the resulting block count to the directory's
// declared size.
func (sc *Scanner) scanChain(e DirEntry) []Warning {
	name := string(e.Name)
	var warnings []Warning

	blocks, err := sc.linkChainBlocks(int(e.Track), int(e.Sector))
	if err != nil {
		return append(warnings, Warning{name, err.Error()})
	}

	for _, ts := range blocks {
		lba := sc.Image.Geometry.LBA(ts[0], ts[1])
		if sc.Image.isBadBlock(lba) {
			warnings = append(warnings, Warning{name, fmt.Sprintf("bad block at %d/%d (lba %d)", ts[0], ts[1], lba)})
		}
		if sc.Weak != nil && sc.Weak[lba] {
			warnings = append(warnings, Warning{name, fmt.Sprintf("weak block at %d/%d (lba %d)", ts[0], ts[1], lba)})
		}
	}

	if len(blocks) != int(e.SizeBlocks) {
		warnings = append(warnings, Warning{name, fmt.Sprintf("block count mismatch: chain has %d, directory declares %d", len(blocks), e.SizeBlocks)})
	}
	return warnings
}

// linkChainBlocks walks the forward link chain starting at t/s, failing
// on a track/sector out of range for the geometry or a repeated block
// (a chain cycle).
func (sc *Scanner) linkChainBlocks(t, s int) ([][2]int, error) {
	var blocks [][2]int
	visited := map[[2]int]bool{}
	for t != 0 {
		key := [2]int{t, s}
		if visited[key] {
			return blocks, fmt.Errorf("link chain loops back to %d/%d", t, s)
		}
		if sc.Image.Geometry.LBA(t, s) < 0 {
			return blocks, fmt.Errorf("invalid track/sector %d/%d", t, s)
		}
		visited[key] = true
		blk, err := sc.Image.Block(t, s)
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, key)
		t, s = int(blk[0]), int(blk[1])
	}
	return blocks, nil
}

// scanRel implements spec.md §4.5.3's REL-file side-sector verification,
// grounded in original_source/imgtool/relfiles.c's append_ssg and
// process_relfile: read the side-sector chain raw, verify per-block
// index, record length, forward link (including the last block's
// terminator), the cross-link table, and (for D81's super side sector)
// the super side sector's pointer table, then compare the side-sector
// derived data-block sequence to the link-chain derived one.
func (sc *Scanner) scanRel(e DirEntry) []Warning {
	name := string(e.Name)
	var warnings []Warning

	dataBlocks, err := sc.linkChainBlocks(int(e.Track), int(e.Sector))
	if err != nil {
		return append(warnings, Warning{name, err.Error()})
	}

	var sideFileBlocks [][2]int
	var sideSectorBlocks [][2]int

	if sc.Image.Geometry.HasSSB {
		super, err := sc.Image.Block(int(e.RelSideTrack), int(e.RelSideSect))
		if err != nil {
			return append(warnings, Warning{name, err.Error()})
		}
		if super[ssbOffsetSuper254] != 254 {
			warnings = append(warnings, Warning{name, "super side sector missing the 254 marker"})
		}
		if super[blkOffsetNextTrack] != super[sssOffsetSSBPointer] || super[blkOffsetNextSector] != super[sssOffsetSSBPointer+1] {
			warnings = append(warnings, Warning{name, "super side sector link chain is broken"})
		}

		var w []Warning
		sideFileBlocks, sideSectorBlocks, w = sc.appendSideSectorGroup(int(super[sssOffsetSSBPointer]), int(super[sssOffsetSSBPointer+1]), int(e.RecordLen), len(dataBlocks))
		warnings = append(warnings, tagged(name, w)...)

		numSSG := 1 + len(sideFileBlocks)/ssbIndexSectorMax
		ssp := sssOffsetSSBPointer
		for i := 0; i < numSSG; i += ssgSideSectorsMax {
			if i >= len(sideSectorBlocks) {
				break
			}
			if int(super[ssp]) != sideSectorBlocks[i][0] || int(super[ssp+1]) != sideSectorBlocks[i][1] {
				warnings = append(warnings, Warning{name, fmt.Sprintf("super side sector pointer #%d mismatch", (ssp-sssOffsetSSBPointer)>>1)})
			}
			ssp += 2
		}
	} else {
		var w []Warning
		sideFileBlocks, _, w = sc.appendSideSectorGroup(int(e.RelSideTrack), int(e.RelSideSect), int(e.RecordLen), len(dataBlocks))
		warnings = append(warnings, tagged(name, w)...)
	}

	n := len(dataBlocks)
	if len(sideFileBlocks) < n {
		n = len(sideFileBlocks)
	}
	for i := 0; i < n; i++ {
		if dataBlocks[i] != sideFileBlocks[i] {
			warnings = append(warnings, Warning{name, fmt.Sprintf("block %d differs between link chain and side sectors", i)})
		}
	}
	if len(dataBlocks) != len(sideFileBlocks) {
		warnings = append(warnings, Warning{name, fmt.Sprintf("file has %d blocks, side sectors list %d", len(dataBlocks), len(sideFileBlocks))})
	}
	return warnings
}

func tagged(name string, warnings []Warning) []Warning {
	out := make([]Warning, len(warnings))
	for i, w := range warnings {
		w.File = name
		out[i] = w
	}
	return out
}

// appendSideSectorGroup reads one side-sector group chain raw starting
// at t/s, validates its internal consistency, and returns the data
// blocks it references plus the raw side-sector block addresses
// themselves.
func (sc *Scanner) appendSideSectorGroup(t, s, recordLen, dataBlockCount int) (fileBlocks, sideBlocks [][2]int, warnings []Warning) {
	var raw [][]byte
	visited := map[[2]int]bool{}
	for t != 0 {
		key := [2]int{t, s}
		if visited[key] {
			warnings = append(warnings, Warning{"", "side sector chain loops"})
			break
		}
		visited[key] = true
		blk, err := sc.Image.Block(t, s)
		if err != nil {
			warnings = append(warnings, Warning{"", err.Error()})
			break
		}
		sideBlocks = append(sideBlocks, key)
		raw = append(raw, blk)
		t, s = int(blk[blkOffsetNextTrack]), int(blk[blkOffsetNextSector])
	}

	for blk := 0; blk < len(raw); blk++ {
		data := raw[blk]
		grpno := blk / ssgSideSectorsMax
		blkInGrp := blk % ssgSideSectorsMax
		lastByte := 255

		if int(data[ssbOffsetSectorNum]) != blkInGrp {
			warnings = append(warnings, Warning{"", fmt.Sprintf("side sector number at block %d wrong: want %d got %d", blk, blkInGrp, data[ssbOffsetSectorNum])})
		}
		if int(data[ssbOffsetRecordLen]) != recordLen {
			warnings = append(warnings, Warning{"", fmt.Sprintf("side sector record length at block %d wrong: want %d got %d", blk, recordLen, data[ssbOffsetRecordLen])})
		}

		if blk < len(raw)-1 {
			if int(data[blkOffsetNextTrack]) != sideBlocks[blk+1][0] || int(data[blkOffsetNextSector]) != sideBlocks[blk+1][1] {
				warnings = append(warnings, Warning{"", fmt.Sprintf("side sector link at block %d wrong", blk)})
			}
		} else {
			wantSector := ssbOffsetSector + 2*(dataBlockCount%ssbIndexSectorMax) - 1
			if data[blkOffsetNextTrack] != 0 || int(data[blkOffsetNextSector]) != wantSector {
				warnings = append(warnings, Warning{"", fmt.Sprintf("terminal side sector link at block %d wrong: want 0/%d got %d/%d", blk, wantSector, data[blkOffsetNextTrack], data[blkOffsetNextSector])})
			}
			lastByte = int(data[blkOffsetNextSector])
		}

		limit := len(raw) - grpno*ssgSideSectorsMax
		if limit > ssgSideSectorsMax {
			limit = ssgSideSectorsMax
		}
		for i := 0; i < limit; i++ {
			wantIdx := grpno*ssgSideSectorsMax + i
			if wantIdx >= len(sideBlocks) {
				break
			}
			gotT, gotS := data[ssbOffsetSSG+i*2], data[ssbOffsetSSG+i*2+1]
			if int(gotT) != sideBlocks[wantIdx][0] || int(gotS) != sideBlocks[wantIdx][1] {
				warnings = append(warnings, Warning{"", fmt.Sprintf("side sector cross-link at block %d pos %d wrong", blk, i)})
			}
		}

		for i := ssbOffsetSector; i < lastByte; i += 2 {
			fileBlocks = append(fileBlocks, [2]int{int(data[i]), int(data[i+1])})
		}
	}

	return fileBlocks, sideBlocks, warnings
}
