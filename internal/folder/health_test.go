package folder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hieutran512/ragkit/internal/models"
)

func TestGetStatusReportsDrift(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha baseline")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	writeFile(t, filepath.Join(dir, "b.md"), "beta appeared later")

	status, err := m.GetStatus(context.Background(), dir)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.FileChangeDrift {
		t.Fatal("expected drift after adding a file")
	}
	if status.DriftAddedFiles != 1 {
		t.Fatalf("driftAddedFiles = %d, want 1", status.DriftAddedFiles)
	}
	if status.DriftCheckedAt == 0 {
		t.Fatal("expected driftCheckedAt to be stamped")
	}
}

func TestGetStatusThrottlesRefresh(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha baseline")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	first, err := m.GetStatus(context.Background(), dir)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}

	// A file added inside the throttle window is not observed until the
	// next refresh interval elapses.
	writeFile(t, filepath.Join(dir, "b.md"), "beta inside window")

	second, err := m.GetStatus(context.Background(), dir)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if second.DriftCheckedAt != first.DriftCheckedAt {
		t.Fatal("expected throttled status to reuse the prior drift check")
	}
	if second.FileChangeDrift {
		t.Fatal("expected no drift reported inside the throttle window")
	}
}

func TestGetStatusNeverIndexed(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(&fakeProvider{})

	status, err := m.GetStatus(context.Background(), dir)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Phase != models.PhaseIdle {
		t.Fatalf("phase = %s, want idle", status.Phase)
	}
	if status.StaleWarning {
		t.Fatal("never-indexed folder must not warn stale")
	}
	if status.LastIndexedAt != 0 {
		t.Fatalf("lastIndexedAt = %d, want 0", status.LastIndexedAt)
	}
}
