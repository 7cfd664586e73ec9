package osd

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileInfoProvider is the default metadata source. It answers from the
// filesystem alone: name, modification date, and size. Richer sources
// (EXIF, host-application databases) plug in behind the same interface.
type FileInfoProvider struct{}

// ItemInfo returns the fields derivable from the file itself.
func (FileInfoProvider) ItemInfo(path string) (map[string]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"name": filepath.Base(path),
		"date": st.ModTime().Format("2006-01-02 15:04"),
		"size": fmt.Sprintf("%d bytes", st.Size()),
	}, nil
}

// StaticProvider serves a fixed map per item path. Used by tests and by
// callers that already hold metadata.
type StaticProvider map[string]map[string]string

// ItemInfo returns the stored fields for path, or an empty map.
func (p StaticProvider) ItemInfo(path string) (map[string]string, error) {
	if info, ok := p[path]; ok {
		return info, nil
	}
	return map[string]string{}, nil
}
