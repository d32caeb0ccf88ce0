package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Data Types
// =============================================================================

// Outcome is what happened to a single source file.
type Outcome string

const (
	OutcomeCopied    Outcome = "copied"    // copied into its date folder
	OutcomeDuplicate Outcome = "duplicate" // already present in its date folder
	OutcomeUnsorted  Outcome = "unsorted"  // no usable date, copied to the unsorted folder
	OutcomeSkipped   Outcome = "skipped"   // outside the datespec
	OutcomeFailed    Outcome = "failed"
)

// FileResult records the outcome for one source file.
type FileResult struct {
	Name    string // base filename in the input folder
	Source  string
	Dest    string // full destination path (planned path in a dry run)
	DateKey string
	Outcome Outcome
	Err     error
}

// Summary aggregates a run.
type Summary struct {
	Total         int // files considered after type filtering
	Ignored       int // directories, hidden and non-media files
	Processed     int // copied + duplicate
	Duplicates    int
	Skipped       int
	Unsorted      int
	Failed        int
	Folders       int    // distinct date folders used
	LastProcessed string // last dated file in name order
}

// =============================================================================
// Batch Driver
// =============================================================================

// Grouper copies the files of a flat input folder into date folders.
type Grouper struct {
	fs       afero.Fs
	cfg      Config
	spec     DateSpec
	resolver *FolderResolver
	log      *slog.Logger

	outMu sync.Mutex
	out   io.Writer
}

// NewGrouper prepares a run. The resolver cache lives exactly as long as the
// returned Grouper.
func NewGrouper(fs afero.Fs, cfg Config, log *slog.Logger, out io.Writer) (*Grouper, error) {
	spec, err := ParseDateSpec(cfg.DateSpec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Grouper{
		fs:       fs,
		cfg:      cfg,
		spec:     spec,
		resolver: NewFolderResolver(fs, cfg.OutputDir, cfg.Postfix, cfg.DryRun, log),
		log:      log,
		out:      out,
	}, nil
}

// Resolver exposes the run's folder assignments.
func (g *Grouper) Resolver() *FolderResolver { return g.resolver }

// Run processes every file in the input folder. Per-file problems are
// recorded in the results and never abort the run; Run only fails when the
// input folder cannot be listed or ctx is cancelled.
func (g *Grouper) Run(ctx context.Context) (Summary, []FileResult, error) {
	names, ignored, err := g.listSource()
	if err != nil {
		return Summary{}, nil, err
	}

	n := len(names)
	g.printf("\nProcessing %d files (%s):\n", n, g.spec)

	results := make([]FileResult, n)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)

	for i, name := range names {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			results[i] = g.processFile(i, n, name)
			return nil
		})
	}
	_ = eg.Wait()

	// Drop slots never scheduled because of cancellation.
	done := results[:0]
	for _, r := range results {
		if r.Name != "" {
			done = append(done, r)
		}
	}

	sum := summarize(done, g.resolver.Len())
	sum.Ignored = ignored

	folders := g.resolver.Assignments()
	for _, key := range slices.Sorted(maps.Keys(folders)) {
		g.log.Debug("date folder", "date", key, "folder", folders[key])
	}

	if err := ctx.Err(); err != nil {
		return sum, done, err
	}
	return sum, done, nil
}

// listSource returns the regular files of the input folder in name order.
// Nested folders are not descended into.
func (g *Grouper) listSource() ([]string, int, error) {
	entries, err := afero.ReadDir(g.fs, g.cfg.InputDir)
	if err != nil {
		return nil, 0, fmt.Errorf("listing %s: %w", g.cfg.InputDir, err)
	}

	var names []string
	ignored := 0
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir(), isHidden(name):
			ignored++
		case !g.cfg.AllFiles && !isMediaFile(name):
			g.log.Debug("ignoring non-media file", "file", name)
			ignored++
		default:
			names = append(names, name)
		}
	}
	return names, ignored, nil
}

func (g *Grouper) processFile(i, n int, name string) FileResult {
	src := filepath.Join(g.cfg.InputDir, name)
	res := FileResult{Name: name, Source: src}

	if !g.spec.Match(name) {
		if g.cfg.Verbose {
			g.printf("  [%d/%d] Skip ==> '%s'...\n", i+1, n, name)
		}
		res.Outcome = OutcomeSkipped
		return res
	}
	g.printf("  [%d/%d] Processing ==> '%s'...\n", i+1, n, name)

	key, date, err := g.fileDate(src, name)
	if err != nil {
		g.log.Warn("no usable date, diverting to unsorted", "file", name, "error", err)
		return g.placeUnsorted(res, err)
	}
	res.DateKey = key

	folder, err := g.resolver.Resolve(key, date)
	if err != nil {
		g.log.Error("cannot resolve date folder, skipping file", "file", name, "date", key, "error", err)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	placed, err := placeFile(g.fs, src, folder, g.cfg.DryRun)
	if err != nil {
		g.log.Error("copy failed", "file", name, "folder", folder, "error", err)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.Dest = placed.Dest

	if placed.Duplicate {
		g.printf("    Already present at '%s'\n", placed.Dest)
		res.Outcome = OutcomeDuplicate
		return res
	}
	g.printf("    Copying to '%s'...\n", placed.Dest)
	res.Outcome = OutcomeCopied
	return res
}

// fileDate takes the date from the filename, falling back to EXIF for
// photos when enabled. The filename error is returned if both fail.
func (g *Grouper) fileDate(src, name string) (string, FileDate, error) {
	key, date, err := ExtractDate(name)
	if err == nil || !g.cfg.Exif || !isPhotoFile(name) {
		return key, date, err
	}

	t, xerr := exifDate(g.fs, src)
	if xerr != nil {
		g.log.Debug("no EXIF date", "file", name, "error", xerr)
		return "", FileDate{}, err
	}
	key, date = dateKeyFromTime(t)
	g.log.Debug("using EXIF date", "file", name, "date", key)
	return key, date, nil
}

// placeUnsorted copies a file that could not be dated into the unsorted folder.
func (g *Grouper) placeUnsorted(res FileResult, cause error) FileResult {
	res.Err = cause

	if !g.cfg.DryRun {
		if err := g.fs.MkdirAll(g.cfg.UnsortedDir, 0o755); err != nil {
			err = &DirectoryCreationError{Path: g.cfg.UnsortedDir, Err: err}
			g.log.Error("cannot create unsorted folder", "folder", g.cfg.UnsortedDir, "error", err)
			res.Outcome, res.Err = OutcomeFailed, err
			return res
		}
	}

	placed, err := placeFile(g.fs, res.Source, g.cfg.UnsortedDir, g.cfg.DryRun)
	if err != nil {
		g.log.Error("copy to unsorted failed", "file", res.Name, "error", err)
		res.Outcome, res.Err = OutcomeFailed, errors.Join(cause, err)
		return res
	}
	res.Dest = placed.Dest
	res.Outcome = OutcomeUnsorted
	g.printf("    Unsorted ==> '%s'\n", placed.Dest)
	return res
}

func (g *Grouper) printf(format string, args ...any) {
	g.outMu.Lock()
	defer g.outMu.Unlock()
	fmt.Fprintf(g.out, format, args...)
}

func summarize(results []FileResult, folders int) Summary {
	s := Summary{Total: len(results), Folders: folders}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCopied:
			s.Processed++
		case OutcomeDuplicate:
			s.Processed++
			s.Duplicates++
		case OutcomeUnsorted:
			s.Unsorted++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
		if (r.Outcome == OutcomeCopied || r.Outcome == OutcomeDuplicate) && r.Name > s.LastProcessed {
			s.LastProcessed = r.Name
		}
	}
	return s
}
