// File: /utils/validators.go
package utils

import (
	"path/filepath"
	"strings"
)

// MaxTrackFileBytes bounds a single uploaded track file.
const MaxTrackFileBytes = 20 << 20

var trackFileExtensions = map[string]bool{
	".gpx": true,
	".xml": true,
}

// IsValidTrackFilename accepts GPX exports. An empty name is allowed since
// some clients post raw content without a filename.
func IsValidTrackFilename(name string) bool {
	if name == "" {
		return true
	}
	return trackFileExtensions[strings.ToLower(filepath.Ext(name))]
}

func IsValidTrackFileSize(size int64) bool {
	return size > 0 && size <= MaxTrackFileBytes
}
