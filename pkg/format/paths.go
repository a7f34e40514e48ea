package format

import (
	"path/filepath"
	"strings"
)

const (
	// MetaExt is the descriptor file extension.
	MetaExt = ".meta"

	// DataExt is the payload file extension.
	DataExt = ".data"
)

// BaseName strips a trailing .meta or .data extension, so that "run1",
// "run1.meta" and "run1.data" all name the same dataset.
func BaseName(path string) string {
	path = filepath.Clean(path)
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, MetaExt) || strings.EqualFold(ext, DataExt) {
		return strings.TrimSuffix(path, ext)
	}
	return path
}

// Paths returns the descriptor and payload paths of the dataset named by path.
func Paths(path string) (meta, data string) {
	base := BaseName(path)
	return base + MetaExt, base + DataExt
}
