package thumbnails

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"mediasync/internal/domain"
)

type fakeRepo struct {
	items   []domain.MediaItem
	saved   []domain.MediaItem
	saves   int
	saveErr error

	listAllCalls     int
	listMissingCalls int
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*domain.MediaItem, error) {
	for _, item := range f.items {
		if item.ID == id {
			copied := item
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepo) ListAll(context.Context) ([]domain.MediaItem, error) {
	f.listAllCalls++
	return append([]domain.MediaItem(nil), f.items...), nil
}

func (f *fakeRepo) ListMissingDerivatives(context.Context) ([]domain.MediaItem, error) {
	f.listMissingCalls++
	var out []domain.MediaItem
	for _, item := range f.items {
		if item.NeedsDerivatives() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveDerivatives(_ context.Context, items []domain.MediaItem) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, items...)
	return nil
}

type recordingGenerator struct {
	mu    sync.Mutex
	bases []string
	fail  map[string]error
}

func (g *recordingGenerator) Generate(_ context.Context, src io.Reader, base string) (domain.DerivativePaths, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bases = append(g.bases, base)
	if _, err := io.ReadAll(src); err != nil {
		return domain.DerivativePaths{}, err
	}
	if err := g.fail[base]; err != nil {
		return domain.DerivativePaths{}, err
	}
	return domain.DerivativePaths{
		Thumbnail:     "/images/thumbnails/" + base + ".jpg",
		ThumbnailWebp: "/images/thumbnails/" + base + ".webp",
		Large:         "/images/large/" + base + ".jpg",
		LargeWebp:     "/images/large/" + base + ".webp",
	}, nil
}

// originServer serves every /uploads path except those listed as missing.
func originServer(t *testing.T, missing ...string) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		for _, m := range missing {
			if r.URL.Path == m {
				http.NotFound(w, r)
				return
			}
		}
		_, _ = w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv, &requested
}

func newTestRegenerator(t *testing.T, repo *fakeRepo, gen DerivativeGenerator, baseURL string) *Regenerator {
	t.Helper()
	r, err := NewRegenerator(RegeneratorOptions{Repo: repo, Generator: gen, PublicBaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewRegenerator: %v", err)
	}
	return r
}

func completeItem(id int64, title string) domain.MediaItem {
	return domain.MediaItem{
		ID:               id,
		Title:            title,
		OriginalURL:      "/uploads/" + strings.ToLower(title) + ".png",
		ThumbnailURL:     "/images/thumbnails/x.jpg",
		ThumbnailWebpURL: "/images/thumbnails/x.webp",
		LargeURL:         "/images/large/x.jpg",
		LargeWebpURL:     "/images/large/x.webp",
	}
}

func TestRegenerateContinuesPastFailedDownload(t *testing.T) {
	srv, _ := originServer(t, "/uploads/golem.png")
	repo := &fakeRepo{items: []domain.MediaItem{
		{ID: 1, Title: "Archer", OriginalURL: "/uploads/archer.png"},
		{ID: 2, Title: "Golem", OriginalURL: "/uploads/golem.png"},
		{ID: 3, Title: "Wyvern", OriginalURL: "/uploads/wyvern.png"},
	}}
	reg := newTestRegenerator(t, repo, &recordingGenerator{}, srv.URL)

	summary, err := reg.Regenerate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(summary.Results))
	}
	if summary.Processed != 2 || summary.Errors != 1 {
		t.Fatalf("processed=%d errors=%d, want 2/1", summary.Processed, summary.Errors)
	}
	if summary.Results[1].Status != OutcomeError || summary.Results[1].ID != 2 {
		t.Fatalf("expected second result to be the failure, got %+v", summary.Results[1])
	}
	if !strings.Contains(summary.Results[1].Message, "404") {
		t.Fatalf("expected status in failure message, got %q", summary.Results[1].Message)
	}
	if summary.Results[0].Status != OutcomeSuccess || summary.Results[2].Status != OutcomeSuccess {
		t.Fatalf("expected items 1 and 3 to succeed: %+v", summary.Results)
	}

	if repo.saves != 1 {
		t.Fatalf("expected one batch save, got %d", repo.saves)
	}
	if len(repo.saved) != 2 || repo.saved[0].ID != 1 || repo.saved[1].ID != 3 {
		t.Fatalf("unexpected saved items: %+v", repo.saved)
	}
	for _, item := range repo.saved {
		for _, v := range []string{item.ThumbnailURL, item.ThumbnailWebpURL, item.LargeURL, item.LargeWebpURL} {
			if v == "" || v == item.OriginalURL {
				t.Fatalf("derivative field %q invalid for item %d", v, item.ID)
			}
		}
	}
}

func TestRegenerateWithoutForceOnlyTouchesIncompleteItems(t *testing.T) {
	srv, requested := originServer(t)
	incomplete := domain.MediaItem{ID: 2, Title: "Mage", OriginalURL: "/uploads/mage.png", ThumbnailWebpURL: "/images/thumbnails/2-mage.webp"}
	repo := &fakeRepo{items: []domain.MediaItem{completeItem(1, "Knight"), incomplete, completeItem(3, "Rogue")}}
	gen := &recordingGenerator{}
	reg := newTestRegenerator(t, repo, gen, srv.URL)

	summary, err := reg.Regenerate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if summary.Processed != 1 || len(gen.bases) != 1 || gen.bases[0] != "2-mage" {
		t.Fatalf("expected only item 2 processed, got %+v / %v", summary, gen.bases)
	}
	if len(*requested) != 1 || (*requested)[0] != "/uploads/mage.png" {
		t.Fatalf("unexpected downloads: %v", *requested)
	}
	if repo.listAllCalls != 0 {
		t.Fatalf("non-forced run must not list all items")
	}
}

func TestRegenerateForceProcessesEveryItem(t *testing.T) {
	srv, _ := originServer(t)
	repo := &fakeRepo{items: []domain.MediaItem{completeItem(1, "Knight"), completeItem(2, "Rogue")}}
	gen := &recordingGenerator{}
	reg := newTestRegenerator(t, repo, gen, srv.URL)

	summary, err := reg.Regenerate(context.Background(), Request{Force: true})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if summary.Processed != 2 || len(gen.bases) != 2 {
		t.Fatalf("expected both items processed, got %+v", summary)
	}
	if gen.bases[0] != "1-knight" || gen.bases[1] != "2-rogue" {
		t.Fatalf("expected selection order to be kept, got %v", gen.bases)
	}
}

func TestRegenerateSingleItemIgnoresStateAndForce(t *testing.T) {
	srv, _ := originServer(t)
	repo := &fakeRepo{items: []domain.MediaItem{completeItem(1, "Knight"), completeItem(2, "Rogue"), {ID: 3, OriginalURL: "/uploads/x.png"}}}
	gen := &recordingGenerator{}
	reg := newTestRegenerator(t, repo, gen, srv.URL)

	for _, force := range []bool{false, true} {
		gen.bases = nil
		id := int64(2)
		summary, err := reg.Regenerate(context.Background(), Request{MediaItemID: &id, Force: force})
		if err != nil {
			t.Fatalf("Regenerate(force=%v): %v", force, err)
		}
		if summary.Processed != 1 || len(summary.Results) != 1 || summary.Results[0].ID != 2 {
			t.Fatalf("force=%v: expected exactly item 2, got %+v", force, summary)
		}
		if len(gen.bases) != 1 {
			t.Fatalf("force=%v: generator calls = %d", force, len(gen.bases))
		}
	}
}

func TestRegenerateUnknownItemIsNotFound(t *testing.T) {
	reg := newTestRegenerator(t, &fakeRepo{}, &recordingGenerator{}, "http://unused.invalid")
	id := int64(99)

	_, err := reg.Regenerate(context.Background(), Request{MediaItemID: &id})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegenerateEmptySelectionMessages(t *testing.T) {
	gen := &recordingGenerator{}

	repo := &fakeRepo{}
	summary, err := newTestRegenerator(t, repo, gen, "http://unused.invalid").Regenerate(context.Background(), Request{Force: true})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	forcedMsg := summary.Message
	if summary.Processed != 0 || summary.Errors != 0 || len(summary.Results) != 0 {
		t.Fatalf("expected zero counts, got %+v", summary)
	}
	if repo.saves != 0 {
		t.Fatalf("empty selection must not persist")
	}

	repo = &fakeRepo{items: []domain.MediaItem{completeItem(1, "Knight")}}
	summary, err = newTestRegenerator(t, repo, gen, "http://unused.invalid").Regenerate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if summary.Message == forcedMsg {
		t.Fatalf("forced-empty and nothing-missing messages must differ: %q", forcedMsg)
	}
	if len(gen.bases) != 0 {
		t.Fatalf("empty selection must not generate")
	}
}

func TestRegenerateRecordsGeneratorFailure(t *testing.T) {
	srv, _ := originServer(t)
	repo := &fakeRepo{items: []domain.MediaItem{
		{ID: 1, Title: "Broken", OriginalURL: "/uploads/broken.png"},
		{ID: 2, Title: "Fine", OriginalURL: "/uploads/fine.png"},
	}}
	gen := &recordingGenerator{fail: map[string]error{"1-broken": errors.New("cannot decode")}}
	reg := newTestRegenerator(t, repo, gen, srv.URL)

	summary, err := reg.Regenerate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if summary.Errors != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if !strings.Contains(summary.Results[0].Message, "cannot decode") {
		t.Fatalf("expected decode message, got %q", summary.Results[0].Message)
	}
}

func TestRegeneratePersistenceFailureKeepsItemResults(t *testing.T) {
	srv, _ := originServer(t)
	repo := &fakeRepo{items: []domain.MediaItem{
		{ID: 1, OriginalURL: "/uploads/a.png"},
		{ID: 2, OriginalURL: ""},
	}, saveErr: errors.New("deadlock")}
	reg := newTestRegenerator(t, repo, &recordingGenerator{}, srv.URL)

	summary, err := reg.Regenerate(context.Background(), Request{})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if summary == nil || len(summary.Results) != 2 {
		t.Fatalf("expected both item results alongside the error, got %+v", summary)
	}
	if summary.Results[0].Status != OutcomeSuccess || summary.Results[1].Status != OutcomeError {
		t.Fatalf("unexpected outcomes: %+v", summary.Results)
	}
	if !strings.Contains(summary.Message, "catalog update failed") {
		t.Fatalf("unexpected message %q", summary.Message)
	}
}

func TestRegenerateUsesAbsoluteOriginalAsIs(t *testing.T) {
	srv, requested := originServer(t)
	repo := &fakeRepo{items: []domain.MediaItem{{ID: 1, OriginalURL: srv.URL + "/uploads/abs.png"}}}
	reg := newTestRegenerator(t, repo, &recordingGenerator{}, "http://public.invalid")

	summary, err := reg.Regenerate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if summary.Processed != 1 || len(*requested) != 1 || (*requested)[0] != "/uploads/abs.png" {
		t.Fatalf("expected absolute original fetched, got %+v / %v", summary, *requested)
	}
}

func TestRegenerateSurvivesCallerCancellation(t *testing.T) {
	srv, _ := originServer(t)
	repo := &fakeRepo{items: []domain.MediaItem{{ID: 1, OriginalURL: "/uploads/a.png"}, {ID: 2, OriginalURL: "/uploads/b.png"}}}
	gen := &cancellingGenerator{recordingGenerator: &recordingGenerator{}}
	reg := newTestRegenerator(t, repo, gen, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	gen.cancel = cancel
	summary, err := reg.Regenerate(ctx, Request{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected batch to run to completion, got %+v", summary)
	}
}

type cancellingGenerator struct {
	*recordingGenerator
	cancel context.CancelFunc
}

func (c *cancellingGenerator) Generate(ctx context.Context, src io.Reader, base string) (domain.DerivativePaths, error) {
	c.cancel()
	return c.recordingGenerator.Generate(ctx, src, base)
}
