package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// =============================================================================
// Processing History
// =============================================================================

// appendHistory records a finished run at the end of the history log:
//
//	[[20200315 14:02]] photo-grouper -o /photos 20200101 run=0195...
//		F: 120 (D: 14) + U: 3	20200314_101500.jpg
//
// The last processed name tells the next run where to pick up from.
func appendHistory(fs afero.Fs, path string, args []string, sum Summary, runID uuid.UUID, now time.Time) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	cmdline := strings.Join(append([]string{appName}, args...), " ")
	_, err = fmt.Fprintf(f, "[[%s]] %s run=%s\n\tF: %d (D: %d) + U: %d\t%s\n",
		now.Format("20060102 15:04"), cmdline, runID,
		sum.Processed, sum.Folders, sum.Unsorted, sum.LastProcessed)
	if err != nil {
		return err
	}
	return f.Sync()
}

// newRunID returns a time-ordered identifier for a run, falling back to a
// random one if the clock-based generator fails.
func newRunID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
