package fsutil

import (
	"os"
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

func TestOSFileSystem_ReadFile(t *testing.T) {
	fs := OSFileSystem{}

	data, err := fs.ReadFile("filesystem.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if len(data) == 0 {
		t.Error("expected non-empty file content")
	}
}

func TestOSFileSystem_WriteAndGlob(t *testing.T) {
	fs := OSFileSystem{}
	tmpDir := t.TempDir()

	for _, name := range []string{"a_provenance.json", "b_provenance.json", "other.txt"} {
		if err := fs.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	matches, err := fs.Glob(filepath.Join(tmpDir, "*_provenance.json"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}

	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2", len(matches))
	}
}

func TestOSFileSystem_MkdirAll(t *testing.T) {
	fs := OSFileSystem{}
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "a", "b", "c")

	if err := fs.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	if !fs.Exists(nestedDir) {
		t.Error("expected nested directory to exist")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_ReadNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/nonexistent.txt")
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}

	pathErr, ok := err.(*os.PathError)
	if !ok {
		t.Fatalf("expected *os.PathError, got %T", err)
	}

	if pathErr.Op != "read" {
		t.Errorf("expected Op 'read', got %q", pathErr.Op)
	}
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	for _, dir := range []string{"/a/b/c", "/a/b", "/a"} {
		if !mfs.Exists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()

	files := []string{
		"provenance/run1_provenance.json",
		"provenance/run2_provenance.json",
		"provenance/notes.txt",
	}
	for _, name := range files {
		if err := mfs.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	matches, err := mfs.Glob("provenance/*_provenance.json")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}

	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2: %v", len(matches), matches)
	}
}

func TestMemoryFileSystem_Exists(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if mfs.Exists("/nonexistent") {
		t.Error("expected non-existent path to not exist")
	}

	if err := mfs.WriteFile("/exists.txt", []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if !mfs.Exists("/exists.txt") {
		t.Error("expected file to exist")
	}

	if err := mfs.MkdirAll("/existsdir", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	if !mfs.Exists("/existsdir") {
		t.Error("expected directory to exist")
	}
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("./dirty/../clean.txt", []byte("clean"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("clean.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != "clean" {
		t.Errorf("expected 'clean', got %q", data)
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	mfs := NewMemoryFileSystem()

	original := []byte("original")
	if err := mfs.WriteFile("/isolated.txt", original, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	original[0] = 'X'

	data, err := mfs.ReadFile("/isolated.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if data[0] != 'o' {
		t.Error("expected data to be isolated from original slice")
	}
}
