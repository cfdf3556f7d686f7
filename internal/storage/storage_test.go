package storage

import (
	"bytes"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	store, err := NewPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewPhotoStore failed: %v", err)
	}

	data := []byte("fake jpeg bytes")
	relPath, err := store.Save(42, data)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if relPath == "" {
		t.Fatal("expected non-empty relative path")
	}

	loaded, err := store.Load(relPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(loaded, data) {
		t.Error("loaded bytes do not match saved bytes")
	}
}

func TestSaveGeneratesUniquePaths(t *testing.T) {
	store, err := NewPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewPhotoStore failed: %v", err)
	}

	p1, err := store.Save(7, []byte("first"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	p2, err := store.Save(7, []byte("second"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if p1 == p2 {
		t.Errorf("expected unique paths, both were %q", p1)
	}

	// The first photo must survive the replacement.
	if _, err := store.Load(p1); err != nil {
		t.Errorf("original photo should still be readable: %v", err)
	}
}

func TestLoadRejectsTraversal(t *testing.T) {
	store, err := NewPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewPhotoStore failed: %v", err)
	}

	if _, err := store.Load("../etc/passwd"); err == nil {
		t.Error("expected error for path traversal")
	}
	if _, err := store.Load("/etc/passwd"); err == nil {
		t.Error("expected error for absolute path")
	}
}

func TestNewPhotoStoreEmptyDir(t *testing.T) {
	if _, err := NewPhotoStore(""); err == nil {
		t.Error("expected error for empty base directory")
	}
}
