package main

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func readManifest(t *testing.T, fs afero.Fs, outDir string) [][]string {
	t.Helper()
	data, err := afero.ReadFile(fs, manifestPath(outDir))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parsing manifest: %v", err)
	}
	return records
}

func TestUpdateManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	dest := filepath.Join("/photos", "2019", "2019_05_19", "20190519_105307.JPG")
	afero.WriteFile(fs, dest, []byte("abc"), 0o644)
	unsorted := "/photos/unsorted/IMG_0001.jpg"
	afero.WriteFile(fs, unsorted, []byte("x"), 0o644)

	now := time.Date(2020, 3, 15, 14, 2, 0, 0, time.UTC)
	results := []FileResult{
		{Name: "20190519_105307.JPG", Dest: dest, DateKey: "20190519", Outcome: OutcomeCopied},
		{Name: "IMG_0001.jpg", Dest: unsorted, Outcome: OutcomeUnsorted},
	}

	added, err := updateManifest(fs, "/photos", results, now)
	if err != nil {
		t.Fatalf("updateManifest() error = %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	records := readManifest(t, fs, "/photos")
	if len(records) != 2 {
		t.Fatalf("manifest has %d records, want header + 1", len(records))
	}
	row := records[1]
	want := map[int]string{
		0: "20190519_105307.JPG",
		1: "2019/2019_05_19/20190519_105307.JPG",
		2: "20190519",
		3: "3",
		6: "900150983cd24fb0d6963f7d28e17f72",
		7: ".jpg",
		8: "2020-03-15 14:02:00",
	}
	for i, w := range want {
		if row[i] != w {
			t.Errorf("column %s = %q, want %q", records[0][i], row[i], w)
		}
	}
}

func TestUpdateManifest_MergesExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Now()

	first := filepath.Join("/photos", "2019", "2019_05_20", "b.jpg")
	second := filepath.Join("/photos", "2019", "2019_05_19", "a.jpg")
	afero.WriteFile(fs, first, []byte("b"), 0o644)
	afero.WriteFile(fs, second, []byte("a"), 0o644)

	if _, err := updateManifest(fs, "/photos", []FileResult{{Dest: first, DateKey: "20190520", Outcome: OutcomeCopied}}, now); err != nil {
		t.Fatal(err)
	}
	added, err := updateManifest(fs, "/photos", []FileResult{
		{Dest: first, DateKey: "20190520", Outcome: OutcomeCopied},
		{Dest: second, DateKey: "20190519", Outcome: OutcomeCopied},
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Errorf("second update added %d rows, want 1", added)
	}

	records := readManifest(t, fs, "/photos")
	if len(records) != 3 {
		t.Fatalf("manifest has %d records, want 3", len(records))
	}
	if records[1][1] != "2019/2019_05_19/a.jpg" || records[2][1] != "2019/2019_05_20/b.jpg" {
		t.Errorf("rows not sorted by relative path: %v", records[1:])
	}
}
