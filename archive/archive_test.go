package archive

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestPutAndSearch(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	id, err := a.Put(ctx, Record{
		TaskID:   "0xt1",
		URL:      "https://example.com/golang",
		Language: "en",
		Summary:  "An introduction to goroutines and channels.",
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id == "" {
		t.Fatal("empty record ID")
	}

	hits, err := a.Search(ctx, "goroutines", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].TaskID != "0xt1" || hits[0].URL != "https://example.com/golang" {
		t.Errorf("hit = %+v", hits[0])
	}
}

func TestByTask(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	if err := a.Record(ctx, "0xt1", "https://example.com/a", "en", "first summary"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Record(ctx, "0xt2", "https://example.com/b", "zh", "second summary"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	hits, err := a.ByTask(ctx, "0xt2")
	if err != nil {
		t.Fatalf("ByTask: %v", err)
	}
	if len(hits) != 1 || hits[0].Language != "zh" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestCount(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := a.Record(ctx, "0xt1", "https://example.com", "en", "summary"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := a.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d", n)
	}
}

func TestSearchNoResults(t *testing.T) {
	a := newTestArchive(t)

	hits, err := a.Search(context.Background(), "nothing indexed", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestOpenPersistentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.bleve")

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Record(context.Background(), "0xt1", "https://example.com", "en", "persisted summary"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after reopen = %d", n)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}
