// Package archive keeps a local, searchable record of resolved summaries.
//
// The ledger holds the authoritative results; this index exists so an
// operator can search past summaries without replaying chain state. Archive
// writes are best effort: a failed write is logged by the caller and never
// affects the task outcome.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// Record is one archived summary.
type Record struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	URL       string    `json:"url"`
	Language  string    `json:"language"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit is one search result.
type Hit struct {
	Record
	Score float64
}

// Archive is a bleve-backed summary index.
type Archive struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// Open opens or creates the index at path.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	var index bleve.Index
	var err error
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create archive index: %w", err)
		}
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive index: %w", err)
		}
	}

	return &Archive{index: index, path: path}, nil
}

// OpenInMemory creates a non-persistent archive, for tests and dry runs.
func OpenInMemory() (*Archive, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	return &Archive{index: index}, nil
}

// buildIndexMapping creates the bleve index mapping for summary records.
func buildIndexMapping() mapping.IndexMapping {
	recMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	dateFieldMapping := bleve.NewDateTimeFieldMapping()

	recMapping.AddFieldMappingsAt("summary", textFieldMapping)
	recMapping.AddFieldMappingsAt("url", keywordFieldMapping)
	recMapping.AddFieldMappingsAt("task_id", keywordFieldMapping)
	recMapping.AddFieldMappingsAt("language", keywordFieldMapping)
	recMapping.AddFieldMappingsAt("created_at", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = recMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Put indexes a record and returns its generated ID.
func (a *Archive) Put(ctx context.Context, rec Record) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec.ID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	if err := a.index.Index(rec.ID, rec); err != nil {
		return "", fmt.Errorf("failed to index record: %w", err)
	}
	return rec.ID, nil
}

// Record stores a resolved summary. It satisfies the handler-side recorder
// contract.
func (a *Archive) Record(ctx context.Context, taskID, url, language, summary string) error {
	_, err := a.Put(ctx, Record{
		TaskID:   taskID,
		URL:      url,
		Language: language,
		Summary:  summary,
	})
	return err
}

// Search runs a full-text query over archived summaries.
func (a *Archive) Search(ctx context.Context, queryText string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(queryText))
	req.Size = limit
	req.Fields = []string{"*"}
	return a.search(req)
}

// ByTask returns all records archived for one ledger task.
func (a *Archive) ByTask(ctx context.Context, taskID string) ([]Hit, error) {
	q := bleve.NewTermQuery(taskID)
	q.SetField("task_id")

	req := bleve.NewSearchRequest(q)
	req.Size = 100
	req.Fields = []string{"*"}
	return a.search(req)
}

func (a *Archive) search(req *bleve.SearchRequest) ([]Hit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result, err := a.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var hits []Hit
	for _, h := range result.Hits {
		hit := Hit{Score: h.Score}
		hit.ID = h.ID
		if v, ok := h.Fields["task_id"].(string); ok {
			hit.TaskID = v
		}
		if v, ok := h.Fields["url"].(string); ok {
			hit.URL = v
		}
		if v, ok := h.Fields["language"].(string); ok {
			hit.Language = v
		}
		if v, ok := h.Fields["summary"].(string); ok {
			hit.Summary = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of archived records.
func (a *Archive) Count() (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index.DocCount()
}

// Close closes the underlying index.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index.Close()
}
