package osfilesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "frame.tlv")

	if err := fs.WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected replaced contents, got %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestFileSystem_WriteFileLeavesNoTemporaries(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "cam-00", "stage-01", "frame-000000.png")

	if err := fs.WriteFile(path, []byte("png")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "frame-000000.png" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the target file, got %v", names)
	}
}

func TestFileSystem_WriteFileIntoFileFails(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(filepath.Join(blocker, "x.tlv"), []byte("x")); err == nil {
		t.Error("expected error when a parent is a regular file")
	}
}

func TestFileSystem_MkdirAllAndExists(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "a", "b")

	if ok, err := fs.Exists(dir); err != nil || ok {
		t.Fatalf("expected missing directory, got %v, %v", ok, err)
	}
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if ok, err := fs.Exists(dir); err != nil || !ok {
		t.Errorf("expected directory to exist, got %v, %v", ok, err)
	}
}

func TestFileSystem_Glob(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	for _, name := range []string{"b.tlv", "a.tlv", "c.png"} {
		if err := fs.WriteFile(filepath.Join(dir, name), []byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll(filepath.Join(dir, "d.tlv")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.tlv", []string{"a.tlv", "b.tlv"}},
		{"c.png", []string{"c.png"}},
		{"missing.tlv", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := fs.Glob(filepath.Join(dir, tt.pattern))
			if err != nil {
				t.Fatalf("Glob failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if filepath.Base(got[i]) != tt.want[i] {
					t.Errorf("match %d: expected %s, got %s", i, tt.want[i], got[i])
				}
			}
		})
	}

	if _, err := fs.Glob("[bad"); err == nil || !strings.Contains(err.Error(), "syntax") {
		t.Errorf("expected pattern syntax error, got %v", err)
	}
}
