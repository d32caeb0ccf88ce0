package main

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

// =============================================================================
// Supported File Types
// =============================================================================

// photoExts contains supported photo file extensions.
// These files are candidates for the EXIF date fallback.
var photoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".heic": true,
	".heif": true,
	".webp": true,
	".dng":  true, // Adobe Digital Negative (Samsung Pro mode RAW)
}

// videoExts contains supported video file extensions.
var videoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".3gp": true,
	".mkv": true,
}

// sidecarExts are small files phones write next to a capture.
var sidecarExts = map[string]bool{
	".srt":  true, // Samsung hyperlapse/GPS subtitles
	".xmp":  true,
	".json": true,
}

// isMediaFile returns true if the file extension indicates a supported media file.
func isMediaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return photoExts[ext] || videoExts[ext] || sidecarExts[ext]
}

// isPhotoFile returns true if the file extension indicates a photo file.
func isPhotoFile(name string) bool {
	return photoExts[strings.ToLower(filepath.Ext(name))]
}

// isHidden reports dotfiles such as ".nomedia" and ".thumbnails".
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// =============================================================================
// EXIF Date Fallback
// =============================================================================

// exifDate extracts the capture date from a photo's EXIF metadata.
// Returns the DateTimeOriginal field if available.
// Returns an error if the file cannot be read or has no EXIF data.
func exifDate(fs afero.Fs, path string) (time.Time, error) {
	f, err := fs.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}

	return x.DateTime()
}
