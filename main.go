// Photo Grouper - copy phone photos into per-date folders
//
// This tool copies a flat dump of phone photos and videos (e.g. an export of
// DCIM/Camera) into a photo collection, grouping files by the yyyyMMdd date
// their names start with (the format Samsung phones use, e.g.
// 20190519_105307.jpg).
//
// Features:
//   - Date folders laid out as <outdir>/YYYY/YYYY_MM_DD/
//   - Postfixed folder names when a date folder already exists (e.g. from
//     another camera): YYYY_MM_DD-n9
//   - Datespec filtering to only copy files newer than the last import
//   - Files without a date copied to an "unsorted" folder
//   - Optional EXIF fallback for photos with undated names
//   - Processing history log and manifest CSV
//
// Usage:
//
//	photo-grouper -o ~/photos -i ./Camera all        # Copy everything
//	photo-grouper -o ~/photos 20200101               # Only files after 2020-01-01
//	photo-grouper -o ~/photos -d "[20200315]"        # Preview a single day
//	photo-grouper -o ~/photos --init                 # Create folders + config
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
)

var version = "development"

// Exit codes.
const (
	exitOK          = 0
	exitRunError    = 1 // listing failed, cancelled, or at least one file failed
	exitUsage       = 2
	exitNoInputDir  = 3
	exitNoOutputDir = 4
)

func main() {
	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr, os.Getenv, time.Now))
}

// run is main without the process-global parts, so it can be driven from tests.
func run(ctx context.Context, args []string, fs afero.Fs, stdout, stderr io.Writer, getenv func(string) string, now func() time.Time) int {
	cfg, err := LoadConfig(fs, args, getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "%s %s\n", appName, version)
		return exitOK
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Init {
		if err := initLibrary(fs, cfg, stdout); err != nil {
			log.Error("init failed", "error", err)
			return exitRunError
		}
		return exitOK
	}

	// Sanity checks
	if ok, _ := afero.DirExists(fs, cfg.InputDir); !ok {
		fmt.Fprintf(stderr, "ERROR: Input Directory '%s' does not exist\n", cfg.InputDir)
		return exitNoInputDir
	}
	if ok, _ := afero.DirExists(fs, cfg.OutputDir); !ok {
		fmt.Fprintf(stderr, "ERROR: Output Directory '%s' does not exist\n", cfg.OutputDir)
		return exitNoOutputDir
	}

	printBanner(stdout, cfg)

	g, err := NewGrouper(fs, cfg, log, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	sum, results, runErr := g.Run(ctx)
	if runErr != nil {
		log.Error("run stopped", "error", runErr)
	}

	printSummary(stdout, cfg, sum)

	if !cfg.DryRun {
		finished := now()
		if cfg.UpdateManifest {
			added, err := updateManifest(fs, cfg.OutputDir, results, finished)
			if err != nil {
				log.Error("updating manifest failed", "error", err)
			} else if added > 0 {
				fmt.Fprintf(stdout, "Added %d entries to manifest\n", added)
			}
		}

		fmt.Fprintln(stdout, "Updating processing history log...")
		runID := newRunID()
		if err := appendHistory(fs, cfg.HistoryFile, cfg.Args, sum, runID, finished); err != nil {
			log.Error("updating history failed", "file", cfg.HistoryFile, "error", err)
		} else {
			fmt.Fprintf(stdout, "History updated in '%s'\n", cfg.HistoryFile)
		}
	}

	fmt.Fprintln(stdout, "\nDone!")

	if runErr != nil || sum.Failed > 0 {
		return exitRunError
	}
	return exitOK
}

func printBanner(w io.Writer, cfg Config) {
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w, "Photo Grouper")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Input:    %s\n", cfg.InputDir)
	fmt.Fprintf(w, "Output:   %s\n", cfg.OutputDir)
	fmt.Fprintf(w, "Unsorted: %s\n", cfg.UnsortedDir)
	fmt.Fprintf(w, "Postfix:  %s\n", cfg.Postfix)
	if cfg.DryRun {
		fmt.Fprintln(w, "\n[DRY RUN MODE - no folders are created and no files copied]")
	}
}

func printSummary(w io.Writer, cfg Config, sum Summary) {
	prefix := ""
	if cfg.DryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Fprintf(w, "\n\n%s%d files copied + sorted (to %d folders). Skipped %d files. Added %d files to 'unsorted' directory\n",
		prefix, sum.Processed, sum.Folders, sum.Skipped, sum.Unsorted)
	if sum.Duplicates > 0 {
		fmt.Fprintf(w, "%s%d files were already present\n", prefix, sum.Duplicates)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(w, "%s%d files FAILED, see errors above\n", prefix, sum.Failed)
	}
}
