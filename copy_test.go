package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestPlaceFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.jpg", []byte("hello"), 0o644)
	fs.MkdirAll("/out", 0o755)
	mtime := time.Date(2019, 5, 19, 10, 53, 7, 0, time.UTC)
	fs.Chtimes("/in/a.jpg", mtime, mtime)

	res, err := placeFile(fs, "/in/a.jpg", "/out", false)
	if err != nil {
		t.Fatalf("placeFile() error = %v", err)
	}
	if res.Dest != "/out/a.jpg" || res.Duplicate {
		t.Errorf("placeFile() = %+v", res)
	}

	data, _ := afero.ReadFile(fs, "/out/a.jpg")
	if string(data) != "hello" {
		t.Errorf("copied content = %q", data)
	}
	info, _ := fs.Stat("/out/a.jpg")
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mod time = %v, want %v", info.ModTime(), mtime)
	}
}

func TestPlaceFile_SameSizeIsDuplicate(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.jpg", []byte("hello"), 0o644)
	afero.WriteFile(fs, "/out/a.jpg", []byte("HELLO"), 0o644)

	res, err := placeFile(fs, "/in/a.jpg", "/out", false)
	if err != nil {
		t.Fatalf("placeFile() error = %v", err)
	}
	if !res.Duplicate || res.Dest != "/out/a.jpg" {
		t.Errorf("placeFile() = %+v, want duplicate of /out/a.jpg", res)
	}
	data, _ := afero.ReadFile(fs, "/out/a.jpg")
	if string(data) != "HELLO" {
		t.Error("duplicate destination was overwritten")
	}
}

func TestPlaceFile_NameClashGetsCounter(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.jpg", []byte("hello world"), 0o644)
	afero.WriteFile(fs, "/out/a.jpg", []byte("other"), 0o644)
	afero.WriteFile(fs, "/out/a_1.jpg", []byte("other 1"), 0o644)

	res, err := placeFile(fs, "/in/a.jpg", "/out", false)
	if err != nil {
		t.Fatalf("placeFile() error = %v", err)
	}
	if want := filepath.Join("/out", "a_2.jpg"); res.Dest != want {
		t.Errorf("dest = %s, want %s", res.Dest, want)
	}
	if ok, _ := afero.Exists(fs, res.Dest); !ok {
		t.Error("file was not copied")
	}
}

// claimingFs writes another file to path just before the first exclusive
// create of it, as a concurrent worker would.
type claimingFs struct {
	afero.Fs
	path    string
	claimed bool
}

func (f *claimingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if name == f.path && flag&os.O_EXCL != 0 && !f.claimed {
		f.claimed = true
		if err := afero.WriteFile(f.Fs, name, []byte("claimed by another worker"), 0o644); err != nil {
			return nil, err
		}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestPlaceFile_RetriesWhenSuffixIsClaimed(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "/in/a.jpg", []byte("hello world"), 0o644)
	afero.WriteFile(mem, "/out/a.jpg", []byte("other"), 0o644)
	fs := &claimingFs{Fs: mem, path: filepath.Join("/out", "a_1.jpg")}

	res, err := placeFile(fs, "/in/a.jpg", "/out", false)
	if err != nil {
		t.Fatalf("placeFile() error = %v", err)
	}
	if want := filepath.Join("/out", "a_2.jpg"); res.Dest != want || res.Duplicate {
		t.Errorf("placeFile() = %+v, want copy to %s", res, want)
	}

	data, _ := afero.ReadFile(mem, "/out/a_1.jpg")
	if string(data) != "claimed by another worker" {
		t.Errorf("a_1.jpg = %q, was overwritten", data)
	}
	data, _ = afero.ReadFile(mem, "/out/a_2.jpg")
	if string(data) != "hello world" {
		t.Errorf("a_2.jpg = %q", data)
	}
}

func TestPlaceFile_DryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.jpg", []byte("hello"), 0o644)
	fs.MkdirAll("/out", 0o755)

	res, err := placeFile(fs, "/in/a.jpg", "/out", true)
	if err != nil {
		t.Fatalf("placeFile() error = %v", err)
	}
	if res.Dest != "/out/a.jpg" {
		t.Errorf("dest = %s", res.Dest)
	}
	if ok, _ := afero.Exists(fs, "/out/a.jpg"); ok {
		t.Error("dry run copied the file")
	}
}

func TestFileHash(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/a", []byte("abc"), 0o644)

	// md5("abc")
	if got, want := fileHash(fs, "/a"), "900150983cd24fb0d6963f7d28e17f72"; got != want {
		t.Errorf("fileHash() = %s, want %s", got, want)
	}
	if got := fileHash(fs, "/missing"); got != "" {
		t.Errorf("fileHash(missing) = %q, want empty", got)
	}
}
