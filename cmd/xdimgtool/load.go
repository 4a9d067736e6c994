package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xd2031/core/diskimage"
)

func loadImage(path string) (*diskimage.Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xdimgtool: %s: %w", path, err)
	}

	geo, hasErrorTable, ok := diskimage.Identify(len(raw))
	if !ok {
		return nil, fmt.Errorf("xdimgtool: %s: %d bytes does not match any known disk geometry", path, len(raw))
	}

	data := raw[:geo.Blocks*256]
	var errTable []byte
	if hasErrorTable {
		errTable = raw[geo.Blocks*256:]
	}
	return diskimage.New(geo, data, errTable)
}

func writeImage(path string, img *diskimage.Image) error {
	out := append([]byte{}, img.Data...)
	if img.ErrorTable != nil {
		out = append(out, img.ErrorTable...)
	}
	return os.WriteFile(path, out, 0644)
}

func nameMatches(mask string, name []byte) bool {
	if mask == "" || mask == "*" {
		return true
	}
	matched, err := filepath.Match(mask, string(name))
	return err == nil && matched
}
