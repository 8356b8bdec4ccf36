package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.fcpxml")

	if err := WriteFileAtomic(target, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(target, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Fatalf("temp files left behind: %v", names)
	}
}

func TestWriteFileAtomic_RenameFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the target path makes the rename fail.
	target := filepath.Join(dir, "busy")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(target, []byte("data"), 0o644); err == nil {
		t.Fatal("expected rename failure")
	}
	for _, name := range listDir(t, dir) {
		if strings.HasSuffix(name, ".tmp") {
			t.Fatalf("temp file %s left behind", name)
		}
	}
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "doc.fcpxml")
	if err := WriteFileAtomic(target, []byte("data"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestWriteJSONAtomicAndReadJSON(t *testing.T) {
	target := filepath.Join(t.TempDir(), "job.json")
	in := map[string]any{"job_id": "abc", "status": "pending"}
	if err := WriteJSONAtomic(target, in); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := ReadJSON(target, &out); err != nil {
		t.Fatal(err)
	}
	if out["job_id"] != "abc" || out["status"] != "pending" {
		t.Fatalf("unexpected decode %v", out)
	}
}

func TestReadJSON_Malformed(t *testing.T) {
	target := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(target, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := ReadJSON(target, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.fcpxml")
	dstDir := filepath.Join(dir, "watch")
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dstDir, "dst.fcpxml")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileAtomic(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	if names := listDir(t, dstDir); len(names) != 1 {
		t.Fatalf("temp files left behind: %v", names)
	}
}

func TestCopyFileAtomic_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileAtomic(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "dst")); !os.IsNotExist(statErr) {
		t.Fatal("destination should not exist after failed copy")
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	if err := RemoveIfExists(filepath.Join(dir, "absent")); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	target := filepath.Join(dir, "present")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(target); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("file still present")
	}
}
