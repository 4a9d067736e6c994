package diskimage

import "fmt"

// blockStatus ranks a source image's opinion of one block, from most to
// least trustworthy.
type blockStatus int

const (
	statusGood     blockStatus = iota // error table entry 1, or no table at all
	statusUntested                    // error table entry 0: never verified, kept as a fallback
	statusBad                         // anything else
)

func (img *Image) blockStatusAt(lba int) blockStatus {
	if img.ErrorTable == nil {
		return statusGood
	}
	if lba < 0 || lba >= len(img.ErrorTable) {
		return statusBad
	}
	switch img.ErrorTable[lba] {
	case 1:
		return statusGood
	case 0:
		return statusUntested
	default:
		return statusBad
	}
}

// Merge combines several copies of the same disk into one, per spec.md
// §4.5.4: for each block, prefer a copy an image actually verified good;
// among disagreeing good copies (a "weak" block) pick the variant most
// other copies agree with, breaking ties toward the earliest image;
// failing that, fall back to an untested copy, and finally to the first
// image's copy outright. weakErrorCode tags weak blocks in the merged
// image's error table (spec.md's testable property S6 uses 0x01).
func Merge(images []*Image, weakErrorCode byte) (*Image, WeakBlocks, error) {
	if len(images) == 0 {
		return nil, nil, fmt.Errorf("diskimage: merge needs at least one image")
	}
	geo := images[0].Geometry
	for i, img := range images[1:] {
		if img.Geometry.Kind != geo.Kind {
			return nil, nil, fmt.Errorf("diskimage: image %d is %s, expected %s", i+1, img.Geometry.Kind, geo.Kind)
		}
	}

	out := make([]byte, geo.Blocks*256)
	errTable := make([]byte, geo.Blocks)
	weak := WeakBlocks{}

	for lba := 0; lba < geo.Blocks; lba++ {
		off := lba * 256
		var goodIdx []int
		var untestedIdx []int
		for i, img := range images {
			switch img.blockStatusAt(lba) {
			case statusGood:
				goodIdx = append(goodIdx, i)
			case statusUntested:
				untestedIdx = append(untestedIdx, i)
			}
		}

		switch {
		case len(goodIdx) > 0:
			chosen := goodIdx[0]
			if allAgree(images, goodIdx, off) {
				copy(out[off:off+256], images[chosen].Data[off:off+256])
			} else {
				weak[lba] = true
				chosen = bestAgreement(images, goodIdx, off)
				copy(out[off:off+256], images[chosen].Data[off:off+256])
				errTable[lba] = weakErrorCode
			}
		case len(untestedIdx) > 0:
			chosen := untestedIdx[0]
			copy(out[off:off+256], images[chosen].Data[off:off+256])
			if images[chosen].ErrorTable != nil {
				errTable[lba] = images[chosen].ErrorTable[lba]
			}
		default:
			copy(out[off:off+256], images[0].Data[off:off+256])
			if images[0].ErrorTable != nil {
				errTable[lba] = images[0].ErrorTable[lba]
			} else {
				errTable[lba] = 2 // no good copy exists; mark read error
			}
		}
	}

	if allZero(errTable) {
		errTable = nil
	}
	merged, err := New(geo, out, errTable)
	return merged, weak, err
}

func allAgree(images []*Image, idx []int, off int) bool {
	if len(idx) < 2 {
		return true
	}
	first := images[idx[0]].Data[off : off+256]
	for _, i := range idx[1:] {
		if !bytesEqual(first, images[i].Data[off:off+256]) {
			return false
		}
	}
	return true
}

// bestAgreement scores each candidate by how many other candidates share
// its bytes exactly, returning the index (into images) of the highest
// scorer; ties resolve to the earliest candidate in idx.
func bestAgreement(images []*Image, idx []int, off int) int {
	scores := make([]int, len(idx))
	for a := range idx {
		for b := range idx {
			if a == b {
				continue
			}
			if bytesEqual(images[idx[a]].Data[off:off+256], images[idx[b]].Data[off:off+256]) {
				scores[a]++
			}
		}
	}
	best := 0
	for i := 1; i < len(idx); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return idx[best]
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
