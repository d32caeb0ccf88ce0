package main

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// =============================================================================
// File Operations
// =============================================================================

// copyResult describes what placeFile did (or would do in a dry run).
type copyResult struct {
	Dest      string
	Duplicate bool // destination already held a file of the same size
}

// placeFile copies src into dir, keeping its base name.
//
// An existing destination of the same size is treated as a previous copy
// of this file and left alone; contents are not compared. A different file
// with the same name gets a numeric suffix: name_1.jpg, name_2.jpg, ...
//
// Concurrent workers may claim a suffixed name between the check and the
// create; the placement is then retried against the new state of dir.
func placeFile(fs afero.Fs, src, dir string, dryRun bool) (copyResult, error) {
	srcInfo, err := fs.Stat(src)
	if err != nil {
		return copyResult{}, err
	}

	want := filepath.Join(dir, filepath.Base(src))
	for attempt := 0; ; attempt++ {
		dest := want
		if destInfo, err := fs.Stat(dest); err == nil {
			if destInfo.Size() == srcInfo.Size() {
				return copyResult{Dest: dest, Duplicate: true}, nil
			}
			dest, err = freeName(fs, dest)
			if err != nil {
				return copyResult{}, err
			}
		}

		if dryRun {
			return copyResult{Dest: dest}, nil
		}
		err := copyFile(fs, src, dest)
		if err == nil {
			return copyResult{Dest: dest}, nil
		}
		if !errors.Is(err, os.ErrExist) || attempt >= maxPlaceAttempts {
			return copyResult{}, fmt.Errorf("copying %s to %s: %w", src, dest, err)
		}
	}
}

// maxPlaceAttempts bounds placeFile retries after losing a create race.
const maxPlaceAttempts = 10

// freeName returns the first "<base>_<n><ext>" next to dest that does not exist.
func freeName(fs afero.Fs, dest string) (string, error) {
	ext := filepath.Ext(dest)
	base := strings.TrimSuffix(dest, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", base, counter, ext)
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// copyFile copies a file from src to dst, preserving the modification time.
// A partially written dst is removed on error.
func copyFile(fs afero.Fs, src, dst string) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		fs.Remove(dst)
		return err
	}
	if err := dstFile.Close(); err != nil {
		fs.Remove(dst)
		return err
	}

	return fs.Chtimes(dst, info.ModTime(), info.ModTime())
}

// fileHash computes an MD5 hash of the first 64KB of a file.
// This provides fast duplicate detection without reading entire files.
// Returns an empty string if the file cannot be read.
func fileHash(fs afero.Fs, path string) string {
	f, err := fs.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyN(h, f, 65536); err != nil && err != io.EOF {
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
