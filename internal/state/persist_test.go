package state

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFilePersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewFilePersister(t.TempDir())

	got, err := p.Load(ctx, RecordCart)
	if err != nil || got != nil {
		t.Fatalf("missing record: data=%v err=%v", got, err)
	}

	payload := []byte(`{"items":[]}`)
	if err := p.Save(ctx, RecordCart, payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = p.Load(ctx, RecordCart)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("loaded %q", got)
	}
}

func TestFilePersisterRecordsIndependent(t *testing.T) {
	ctx := context.Background()
	p := NewFilePersister(t.TempDir())

	if err := p.Save(ctx, RecordFavorites, []byte(`{"favorites":[1]}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := p.Load(ctx, RecordTheme)
	if err != nil || got != nil {
		t.Fatalf("unrelated record: data=%v err=%v", got, err)
	}
}

func TestSQLitePersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	p, err := NewSQLitePersister(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	got, err := p.Load(ctx, RecordFilters)
	if err != nil || got != nil {
		t.Fatalf("missing record: data=%v err=%v", got, err)
	}

	if err := p.Save(ctx, RecordFilters, []byte(`{"category":"all"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := p.Save(ctx, RecordFilters, []byte(`{"category":"electronics"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err = p.Load(ctx, RecordFilters)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"category":"electronics"}` {
		t.Fatalf("loaded %q", got)
	}
}

func TestSQLitePersisterSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := NewSQLitePersister(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(ctx, RecordTheme, []byte(`{"dark":true}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewSQLitePersister(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := second.Load(ctx, RecordTheme)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"dark":true}` {
		t.Fatalf("loaded %q", got)
	}
}
