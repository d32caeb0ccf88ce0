package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// =============================================================================
// Photo Library Initialization
// =============================================================================

// initLibrary creates the output and unsorted folders and writes cfg as the
// default config file. Existing folders and an existing config file are left
// untouched.
func initLibrary(fs afero.Fs, cfg Config, out io.Writer) error {
	dirs := []struct {
		path string
		desc string
	}{
		{cfg.OutputDir, "Photo collection, grouped as YYYY/YYYY_MM_DD"},
		{cfg.UnsortedDir, "Files without a date in their name"},
	}

	fmt.Fprintf(out, "Initializing photo library at: %s\n\n", cfg.OutputDir)

	created, skipped := 0, 0
	for _, dir := range dirs {
		if exists, _ := afero.DirExists(fs, dir.path); exists {
			fmt.Fprintf(out, "⊘ %s (already exists)\n", dir.path)
			skipped++
			continue
		}
		if err := fs.MkdirAll(dir.path, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir.path, err)
		}
		fmt.Fprintf(out, "✓ %s/ - %s\n", filepath.Base(dir.path), dir.desc)
		created++
	}

	if exists, _ := afero.Exists(fs, cfg.ConfigFile); exists {
		fmt.Fprintf(out, "⊘ %s (already exists)\n", cfg.ConfigFile)
	} else {
		if err := WriteConfigFile(fs, cfg.ConfigFile, cfg.persistable()); err != nil {
			return fmt.Errorf("failed to write config %s: %w", cfg.ConfigFile, err)
		}
		fmt.Fprintf(out, "✓ %s - default settings\n", cfg.ConfigFile)
	}

	fmt.Fprintf(out, "\nCreated %d directories, skipped %d existing\n", created, skipped)
	return nil
}
