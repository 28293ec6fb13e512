package memindex

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/simindex"
)

// stubEmbedder maps known texts to fixed vectors so distances are
// predictable without a real embedding service.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query":  {0, 0},
		"near":   {0.1, 0},
		"mid":    {1, 0},
		"far":    {50, 0},
		"remote": {0.2, 0},
	}}
	return New(emb, 0.1)
}

func seed(t *testing.T, x *Index, id, text string, meta simindex.Metadata) {
	t.Helper()
	if err := x.Upsert(context.Background(), id, text, meta); err != nil {
		t.Fatalf("Upsert(%s): %v", id, err)
	}
}

func TestQueryRanksBySimilarity(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	seed(t, x, "a", "mid", simindex.Metadata{Subject: "mid"})
	seed(t, x, "b", "near", simindex.Metadata{Subject: "near"})
	seed(t, x, "c", "far", simindex.Metadata{Subject: "far"})

	got, err := x.Query(context.Background(), simindex.Query{Text: "query", TopK: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	// "far" falls below the similarity cutoff
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(got), got)
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("order = %s, %s; want b, a", got[0].ID, got[1].ID)
	}
}

func TestQueryExcludesSelf(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	seed(t, x, "self", "query", simindex.Metadata{})
	seed(t, x, "other", "near", simindex.Metadata{})

	got, err := x.Query(context.Background(), simindex.Query{Text: "query", ExcludeID: "self", TopK: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "other" {
		t.Errorf("got %v, want only other", got)
	}
}

func TestQueryZoneFilter(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	seed(t, x, "w", "near", simindex.Metadata{Zone: "work"})
	seed(t, x, "h", "remote", simindex.Metadata{Zone: "home"})

	got, err := x.Query(context.Background(), simindex.Query{Text: "query", Zone: "work", TopK: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "w" {
		t.Errorf("got %v, want only the work entry", got)
	}
}

func TestQueryRequireTriaged(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	seed(t, x, "triaged", "near", simindex.Metadata{Category: intake.CategoryFYI, Priority: intake.PriorityP3})
	seed(t, x, "raw", "remote", simindex.Metadata{})

	got, err := x.Query(context.Background(), simindex.Query{Text: "query", TopK: 5, RequireTriaged: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "triaged" {
		t.Errorf("got %v, want only the triaged entry", got)
	}
	if got[0].Category != intake.CategoryFYI {
		t.Errorf("Category = %q, want FYI", got[0].Category)
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	got, err := x.Query(context.Background(), simindex.Query{Text: "query", TopK: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil", got)
	}
}

func TestQueryEmbedderFailure(t *testing.T) {
	t.Parallel()

	x := New(&stubEmbedder{vectors: map[string][]float32{"near": {0.1, 0}}}, 0.1)
	seed(t, x, "a", "near", simindex.Metadata{})

	x.embedder = &stubEmbedder{err: errors.New("embedding api down")}
	if _, err := x.Query(context.Background(), simindex.Query{Text: "query"}); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestSetClassification(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	seed(t, x, "a", "near", simindex.Metadata{})

	if err := x.SetClassification(context.Background(), "a", intake.CategoryActionRequired, intake.PriorityP1); err != nil {
		t.Fatalf("SetClassification: %v", err)
	}

	got, _ := x.Query(context.Background(), simindex.Query{Text: "query", TopK: 5, RequireTriaged: true})
	if len(got) != 1 {
		t.Fatalf("entry not triaged after SetClassification: %v", got)
	}
	if got[0].Category != intake.CategoryActionRequired || got[0].Priority != intake.PriorityP1 {
		t.Errorf("got %s/%s, want Action-Required/P1", got[0].Category, got[0].Priority)
	}

	// unknown ids are a no-op, not an error
	if err := x.SetClassification(context.Background(), "ghost", intake.CategoryFYI, intake.PriorityP3); err != nil {
		t.Errorf("SetClassification(ghost): %v", err)
	}
}

func TestDeleteAndCount(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	ctx := context.Background()
	seed(t, x, "a", "near", simindex.Metadata{})
	seed(t, x, "b", "mid", simindex.Metadata{})

	if n, _ := x.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
	if err := x.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := x.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestUpsertReplaces(t *testing.T) {
	t.Parallel()

	x := testIndex(t)
	seed(t, x, "a", "far", simindex.Metadata{Subject: "old"})
	seed(t, x, "a", "near", simindex.Metadata{Subject: "new"})

	got, _ := x.Query(context.Background(), simindex.Query{Text: "query", TopK: 5})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Subject != "new" {
		t.Errorf("Subject = %q, want new", got[0].Subject)
	}
}
