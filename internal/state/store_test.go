package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/danieljhkim/packsmith/internal/fsops"
)

var finished = time.Date(2026, time.March, 4, 5, 6, 7, 0, time.UTC)

func TestFileHistoryStore_LoadMissing(t *testing.T) {
	store := NewFileHistoryStore(fsops.NewMemFS(), "/dist")

	history, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if history.Latest() != nil {
		t.Errorf("expected empty history, got %+v", history.Latest())
	}
}

func TestFileHistoryStore_AppendAndLoad(t *testing.T) {
	fs := fsops.NewMemFS()
	store := NewFileHistoryStore(fs, "/dist")

	rec := NewBuildRecord(finished)
	rec.Artifact = "/dist/Pack-20260304-050607.zip"
	rec.Digest = "abc123"
	rec.Size = 2048
	rec.Overlays = append(rec.Overlays,
		OverlayRecord{Item: "totem_of_undying", Name: "wither_totem", CustomModelData: 1},
		OverlayRecord{Item: "totem_of_undying", Name: "py_totem", CustomModelData: 2},
	)

	if err := store.Append(rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	latest := history.Latest()
	if latest == nil {
		t.Fatal("expected a record")
	}
	if latest.ID != rec.ID || latest.ID == "" {
		t.Errorf("ID = %q, want %q", latest.ID, rec.ID)
	}
	if !latest.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", latest.FinishedAt, finished)
	}
	if len(latest.Overlays) != 2 || latest.Overlays[1].CustomModelData != 2 {
		t.Errorf("unexpected overlays %+v", latest.Overlays)
	}

	if exists, _ := fs.Exists("/dist/" + HistoryFile); !exists {
		t.Error("history file not written")
	}
}

func TestFileHistoryStore_Bounded(t *testing.T) {
	store := NewFileHistoryStore(fsops.NewMemFS(), "/dist")

	for i := 0; i < MaxRecords+5; i++ {
		rec := NewBuildRecord(finished.Add(time.Duration(i) * time.Minute))
		rec.Artifact = fmt.Sprintf("/dist/%d.zip", i)
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	history, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(history.Builds) != MaxRecords {
		t.Fatalf("expected %d records, got %d", MaxRecords, len(history.Builds))
	}
	if history.Builds[0].Artifact != "/dist/5.zip" {
		t.Errorf("oldest kept record = %s, want /dist/5.zip", history.Builds[0].Artifact)
	}
	if history.Latest().Artifact != fmt.Sprintf("/dist/%d.zip", MaxRecords+4) {
		t.Errorf("latest record = %s", history.Latest().Artifact)
	}
}

func TestFileHistoryStore_Corrupt(t *testing.T) {
	fs := fsops.NewMemFS()
	if err := fs.AtomicWrite("/dist/"+HistoryFile, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileHistoryStore(fs, "/dist").Load(); err == nil {
		t.Error("expected an error for a corrupt history")
	}
}
