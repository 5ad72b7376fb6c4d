package index

import (
	"path/filepath"
	"testing"
)

func TestProjectID_StableForSamePath(t *testing.T) {
	dir := t.TempDir()
	a, err := ProjectID(dir)
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	b, err := ProjectID(dir)
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same root to yield the same project id, got %q and %q", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected a 32-character id, got %d", len(a))
	}
}

func TestProjectID_DifferentPathsYieldDifferentIDs(t *testing.T) {
	dir := t.TempDir()
	a, err := ProjectID(filepath.Join(dir, "one"))
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	b, err := ProjectID(filepath.Join(dir, "two"))
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct roots to yield distinct project ids")
	}
}

func TestProjectID_EquivalentPathsCollapseToSameID(t *testing.T) {
	dir := t.TempDir()
	a, err := ProjectID(filepath.Join(dir, "proj"))
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	b, err := ProjectID(filepath.Join(dir, "proj", "..") + "/proj")
	if err != nil {
		t.Fatalf("project id: %v", err)
	}
	if a != b {
		t.Fatalf("expected two on-disk paths to the same canonical directory to collapse to one id, got %q and %q", a, b)
	}
}
