package main

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// =============================================================================
// Manifest Management
// =============================================================================

// manifestHeaders are written when the manifest is created.
var manifestHeaders = []string{
	"filename",        // Base filename
	"relative_path",   // Path relative to the output root
	"date_key",        // yyyyMMdd the file was grouped by
	"file_size_bytes", // Size in bytes
	"file_size_mb",    // Size in megabytes
	"file_modified",   // File modification timestamp
	"file_hash",       // MD5 hash of first 64KB
	"extension",       // File extension
	"organized_date",  // When the file was copied
}

// manifestPath returns <outdir>/_Manifest/photo_manifest.csv.
func manifestPath(outDir string) string {
	return filepath.Join(outDir, "_Manifest", "photo_manifest.csv")
}

// updateManifest merges newly copied files into the manifest CSV.
// Creates the manifest file if it doesn't exist.
// Existing rows are kept; rows are keyed and sorted by relative path.
// Returns the number of rows added.
func updateManifest(fs afero.Fs, outDir string, results []FileResult, now time.Time) (int, error) {
	path := manifestPath(outDir)
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}

	// Read existing entries from manifest
	existing := make(map[string][]string)
	headers := manifestHeaders

	if data, err := afero.ReadFile(fs, path); err == nil {
		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			return 0, fmt.Errorf("reading manifest %s: %w", path, err)
		}
		if len(records) > 0 {
			headers = records[0]
			for _, row := range records[1:] {
				if len(row) > 1 {
					existing[row[1]] = row // Key by relative_path
				}
			}
		}
	}

	added := 0
	for _, r := range results {
		if r.Outcome != OutcomeCopied {
			continue
		}
		relPath, err := filepath.Rel(outDir, r.Dest)
		if err != nil {
			relPath = r.Dest
		}
		relPath = filepath.ToSlash(relPath)
		if _, ok := existing[relPath]; ok {
			continue
		}

		info, err := fs.Stat(r.Dest)
		if err != nil {
			return added, err
		}
		existing[relPath] = []string{
			filepath.Base(r.Dest),
			relPath,
			r.DateKey,
			fmt.Sprintf("%d", info.Size()),
			fmt.Sprintf("%.2f", float64(info.Size())/(1024*1024)),
			info.ModTime().Format("2006-01-02 15:04:05"),
			fileHash(fs, r.Dest),
			strings.ToLower(filepath.Ext(r.Dest)),
			now.Format("2006-01-02 15:04:05"),
		}
		added++
	}

	f, err := fs.Create(path)
	if err != nil {
		return added, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return added, err
	}

	paths := make([]string, 0, len(existing))
	for p := range existing {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := w.Write(existing[p]); err != nil {
			return added, err
		}
	}
	w.Flush()
	return added, w.Error()
}
