package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	path := filepath.Join(dir, "out.txt")
	w, err := osfs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "mission"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := osfs.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "mission" {
		t.Errorf("expected %q, got %q", "mission", data)
	}
}

func TestMemoryFileSystem_CreateNeedsDirectory(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.Create("out/plan.geojson")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist before MkdirAll, got %v", err)
	}

	if err := mfs.MkdirAll("out", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := mfs.Create("out/plan.geojson")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if mfs.Exists("out/plan.geojson") {
		t.Error("file should not be visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("out/plan.geojson")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}
}

func TestMemoryFileSystem_MkdirAllCreatesParents(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/runs/2025/06", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, dir := range []string{"/runs", "/runs/2025", "/runs/2025/06"} {
		if !mfs.Exists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}

func TestMemoryFileSystem_OpenAndFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("in/terrain.png", []byte{1, 2, 3})
	mfs.WriteFile("in/elevation.csv", []byte("1,2\n"))

	r, err := mfs.Open("in/terrain.png")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, _ := io.ReadAll(r)
	if len(data) != 3 {
		t.Errorf("expected 3 bytes, got %d", len(data))
	}

	if _, err := mfs.Open("in/missing.png"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	got := mfs.Files()
	want := []string{"in/elevation.csv", "in/terrain.png"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Files() = %v, want %v", got, want)
	}
}

func TestMemoryFileSystem_ReadFileReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("a.txt", []byte("abc"))

	data, _ := mfs.ReadFile("a.txt")
	data[0] = 'z'

	again, _ := mfs.ReadFile("a.txt")
	if string(again) != "abc" {
		t.Errorf("stored data was mutated: %q", again)
	}
}
