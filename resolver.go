package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// =============================================================================
// Date Folder Resolution
// =============================================================================

// DirectoryCreationError reports a failure creating the folder for a date.
// It usually points at a systemic problem (permissions, bad root) that will
// repeat for the following files.
type DirectoryCreationError struct {
	DateKey string
	Path    string
	Err     error
}

func (e *DirectoryCreationError) Error() string {
	if e.DateKey == "" {
		return fmt.Sprintf("creating folder %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("creating folder %s for %s: %v", e.Path, e.DateKey, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

func (e *DirectoryCreationError) Is(target error) bool { return target == ErrDirectoryCreation }

// FolderCollisionError reports that both the standard folder name for a date
// and its postfixed alternate already exist on disk.
type FolderCollisionError struct {
	DateKey string
	Path    string // the alternate that was already taken
}

func (e *FolderCollisionError) Error() string {
	return fmt.Sprintf("folder for %s already exists under both names (last tried %s)", e.DateKey, e.Path)
}

func (e *FolderCollisionError) Is(target error) bool { return target == ErrFolderCollision }

// FolderResolver maps DateKeys to destination folders for one batch run.
// Entries are only ever added: the first folder chosen for a date is reused
// for every later file with that date.
//
// All methods are goroutine-safe. Cached lookups share a read lock; a miss
// holds the write lock across check, create and insert.
type FolderResolver struct {
	fs      afero.Fs
	root    string
	postfix string
	dryRun  bool
	log     *slog.Logger

	mu      sync.RWMutex
	folders map[string]string // DateKey -> folder path
}

// NewFolderResolver creates an empty resolver rooted at root.
// postfix is appended as "-<postfix>" when the standard folder already exists.
func NewFolderResolver(fs afero.Fs, root, postfix string, dryRun bool, log *slog.Logger) *FolderResolver {
	if log == nil {
		log = slog.Default()
	}
	return &FolderResolver{
		fs:      fs,
		root:    root,
		postfix: postfix,
		dryRun:  dryRun,
		log:     log,
		folders: make(map[string]string),
	}
}

// Resolve returns the folder for key, creating it on first use unless the
// resolver is in dry-run mode.
func (r *FolderResolver) Resolve(key string, d FileDate) (string, error) {
	r.mu.RLock()
	folder, ok := r.folders[key]
	r.mu.RUnlock()
	if ok {
		return folder, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have resolved it while we waited.
	if folder, ok := r.folders[key]; ok {
		return folder, nil
	}

	folder, err := r.pick(key, d)
	if err != nil {
		return "", err
	}

	if r.dryRun {
		r.log.Debug("dry run, not creating folder", "date", key, "folder", folder)
	} else {
		if err := r.fs.MkdirAll(folder, 0o755); err != nil {
			return "", &DirectoryCreationError{DateKey: key, Path: folder, Err: err}
		}
		r.log.Info("created folder", "date", key, "folder", folder)
	}

	r.folders[key] = folder
	return folder, nil
}

// pick chooses between the standard folder name and its single postfixed
// alternate. Caller holds r.mu.
func (r *FolderResolver) pick(key string, d FileDate) (string, error) {
	folder := standardFolder(r.root, d)

	taken, err := afero.Exists(r.fs, folder)
	if err != nil {
		return "", &DirectoryCreationError{DateKey: key, Path: folder, Err: err}
	}
	if !taken {
		return folder, nil
	}
	if r.postfix == "" {
		return "", &FolderCollisionError{DateKey: key, Path: folder}
	}

	alt := folder + "-" + r.postfix
	taken, err = afero.Exists(r.fs, alt)
	if err != nil {
		return "", &DirectoryCreationError{DateKey: key, Path: alt, Err: err}
	}
	if taken {
		return "", &FolderCollisionError{DateKey: key, Path: alt}
	}
	r.log.Debug("standard folder taken, using postfix", "date", key, "folder", folder, "postfix", r.postfix)
	return alt, nil
}

// Len returns the number of distinct dates resolved so far.
func (r *FolderResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.folders)
}

// Assignments returns a copy of the DateKey -> folder mapping.
func (r *FolderResolver) Assignments() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.folders))
	for k, v := range r.folders {
		out[k] = v
	}
	return out
}

// standardFolder builds <root>/<YYYY>/<YYYY>_<MM>_<DD>.
func standardFolder(root string, d FileDate) string {
	year := fmt.Sprintf("%02d", d.Year)
	day := fmt.Sprintf("%02d_%02d_%02d", d.Year, d.Month, d.Day)
	return filepath.Join(root, year, day)
}
