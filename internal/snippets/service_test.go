package snippets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

type storeStub struct {
	createFn func(ctx context.Context, s *Snippet, tags []TagName, img *Image) error
	recordFn func(ctx context.Context, id string) (*Record, error)
	getFn    func(ctx context.Context, id string) (*Snippet, error)
	listFn   func(ctx context.Context) ([]Summary, error)
	searchFn func(ctx context.Context, query string) ([]Summary, error)
	imageFn  func(ctx context.Context, id string) (*Image, error)
	statsFn  func(ctx context.Context) (Stats, error)
}

func (s *storeStub) Create(ctx context.Context, sn *Snippet, tags []TagName, img *Image) error {
	if s.createFn != nil {
		return s.createFn(ctx, sn, tags, img)
	}
	return nil
}

func (s *storeStub) GetRecord(ctx context.Context, id string) (*Record, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *storeStub) GetByID(ctx context.Context, id string) (*Snippet, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *storeStub) ListSummaries(ctx context.Context) ([]Summary, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *storeStub) SearchSummaries(ctx context.Context, query string) ([]Summary, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, query)
	}
	return nil, nil
}

func (s *storeStub) GetImage(ctx context.Context, id string) (*Image, error) {
	if s.imageFn != nil {
		return s.imageFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *storeStub) Stats(ctx context.Context) (Stats, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx)
	}
	return Stats{}, nil
}

type lockerStub struct {
	keys     []string
	released bool
	err      error
}

func (l *lockerStub) Lock(ctx context.Context, keys []string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.keys = keys
	return func() { l.released = true }, nil
}

func TestServiceSubmitDefaults(t *testing.T) {
	store := &storeStub{}
	svc := &Service{Store: store, IDGenerator: func() string { return "snp_test" }}

	var gotTags []TagName
	var gotImage *Image
	store.createFn = func(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
		gotTags = tags
		gotImage = img
		return nil
	}

	snippet, err := svc.Submit(context.Background(), SubmitRequest{
		Title: "  hello ",
		Body:  "print('hi')",
	})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if snippet.ID != "snp_test" {
		t.Fatalf("unexpected id: %s", snippet.ID)
	}
	if snippet.Title != "hello" {
		t.Fatalf("expected trimmed title, got %q", snippet.Title)
	}
	if snippet.Language != DefaultLanguage {
		t.Fatalf("expected default language, got %s", snippet.Language)
	}
	if len(gotTags) != 0 {
		t.Fatalf("expected no tags, got %v", gotTags)
	}
	if gotImage != nil {
		t.Fatal("expected no image")
	}
}

func TestServiceSubmitKeepsBodyWhitespace(t *testing.T) {
	store := &storeStub{}
	svc := &Service{Store: store}

	body := "\tfunc main() {}\n"
	snippet, err := svc.Submit(context.Background(), SubmitRequest{Title: "t", Body: body})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if snippet.Body != body {
		t.Fatalf("body changed: %q", snippet.Body)
	}
	if !strings.HasPrefix(snippet.ID, "snp_") {
		t.Fatalf("unexpected id: %s", snippet.ID)
	}
}

func TestServiceSubmitMissingFields(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	cases := []SubmitRequest{
		{Title: "", Body: "x"},
		{Title: "x", Body: ""},
		{Title: "   ", Body: "x"},
		{Title: "x", Body: " \n\t"},
	}
	for _, req := range cases {
		_, err := svc.Submit(context.Background(), req)
		assertKind(t, err, apperrors.KindInvalidInput)
		if !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected ErrMissingField, got %v", err)
		}
	}
}

func TestServiceSubmitTagLimits(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	many := make([]string, MaxTags+1)
	for i := range many {
		many[i] = strings.Repeat("t", i+1)
	}
	_, err := svc.Submit(context.Background(), SubmitRequest{Title: "a", Body: "b", Tags: many})
	assertKind(t, err, apperrors.KindInvalidInput)

	_, err = svc.Submit(context.Background(), SubmitRequest{
		Title: "a", Body: "b", Tags: []string{strings.Repeat("x", MaxTagLength+1)},
	})
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceSubmitNormalizesTags(t *testing.T) {
	store := &storeStub{}
	svc := &Service{Store: store}

	var got []TagName
	store.createFn = func(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
		got = tags
		return nil
	}

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Title: "a", Body: "b", Tags: []string{"Go", "cli", "go", " ", "CLI"},
	})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if len(got) != 2 || got[0].Key != "cli" || got[1].Key != "go" {
		t.Fatalf("unexpected tags: %+v", got)
	}
	if got[1].Name != "Go" {
		t.Fatalf("expected first spelling kept, got %q", got[1].Name)
	}
}

func TestServiceSubmitLocksTags(t *testing.T) {
	locker := &lockerStub{}
	store := &storeStub{}
	svc := &Service{Store: store, Locker: locker}

	store.createFn = func(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
		if locker.released {
			t.Fatal("lock released before create")
		}
		return nil
	}

	_, err := svc.Submit(context.Background(), SubmitRequest{Title: "a", Body: "b", Tags: []string{"b", "a"}})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if strings.Join(locker.keys, ",") != "a,b" {
		t.Fatalf("unexpected lock keys: %v", locker.keys)
	}
	if !locker.released {
		t.Fatal("lock not released")
	}
}

func TestServiceSubmitLockFailure(t *testing.T) {
	svc := &Service{Store: &storeStub{}, Locker: &lockerStub{err: errors.New("redis down")}}

	_, err := svc.Submit(context.Background(), SubmitRequest{Title: "a", Body: "b", Tags: []string{"x"}})
	assertKind(t, err, apperrors.KindStorage)
}

func TestServiceSubmitStorageError(t *testing.T) {
	store := &storeStub{createFn: func(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
		return errors.New("disk full")
	}}
	svc := &Service{Store: store}

	_, err := svc.Submit(context.Background(), SubmitRequest{Title: "a", Body: "b"})
	assertKind(t, err, apperrors.KindStorage)
}

func TestServiceSubmitDropsEmptyImage(t *testing.T) {
	store := &storeStub{}
	svc := &Service{Store: store}

	var got *Image
	store.createFn = func(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
		got = img
		return nil
	}

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Title: "a", Body: "b", Image: &Image{ContentType: "image/png"},
	})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if got != nil {
		t.Fatal("expected empty image to be dropped")
	}
}

func TestServiceGetNotFound(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	_, err := svc.Get(context.Background(), "snp_missing")
	assertKind(t, err, apperrors.KindNotFound)

	_, err = svc.Get(context.Background(), " ")
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceGetStorageError(t *testing.T) {
	store := &storeStub{recordFn: func(ctx context.Context, id string) (*Record, error) {
		return nil, errors.New("connection reset")
	}}
	svc := &Service{Store: store}

	_, err := svc.Get(context.Background(), "snp_1")
	assertKind(t, err, apperrors.KindStorage)
}

func TestServiceDiscoverPreviews(t *testing.T) {
	long := strings.Repeat("é", PreviewLength+20)
	store := &storeStub{listFn: func(ctx context.Context) ([]Summary, error) {
		return []Summary{
			{ID: "s1", Title: "long", Body: long, Tags: []string{"go"}},
			{ID: "s2", Title: "short", Body: "abc"},
		}, nil
	}}
	svc := &Service{Store: store}

	list, err := svc.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("unexpected list size: %d", len(list))
	}
	if got := []rune(list[0].Preview); len(got) != PreviewLength {
		t.Fatalf("unexpected preview length: %d", len(got))
	}
	if list[1].Preview != "abc" {
		t.Fatalf("unexpected preview: %q", list[1].Preview)
	}
	if list[1].Tags == nil {
		t.Fatal("expected empty tags slice, got nil")
	}
}

func TestServiceSearchRequiresQuery(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	_, err := svc.Search(context.Background(), "  ")
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceSearchPassesTrimmedQuery(t *testing.T) {
	var got string
	store := &storeStub{searchFn: func(ctx context.Context, query string) ([]Summary, error) {
		got = query
		return nil, nil
	}}
	svc := &Service{Store: store}

	list, err := svc.Search(context.Background(), " Go ")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if got != "Go" {
		t.Fatalf("unexpected query: %q", got)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestServiceImageNotFound(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	_, err := svc.Image(context.Background(), "snp_1")
	assertKind(t, err, apperrors.KindNotFound)
}

func TestServiceHighlight(t *testing.T) {
	store := &storeStub{getFn: func(ctx context.Context, id string) (*Snippet, error) {
		return &Snippet{ID: id, Body: "package main", Language: "go"}, nil
	}}
	svc := &Service{Store: store}

	out, err := svc.Highlight(context.Background(), "snp_1", "")
	if err != nil {
		t.Fatalf("highlight error: %v", err)
	}
	if !strings.Contains(out, "package") || !strings.Contains(out, "<pre") {
		t.Fatalf("unexpected highlight output: %s", out)
	}
}

func TestRecordViewImage(t *testing.T) {
	rec := &Record{Snippet: Snippet{Title: "t", Body: "b", Language: "go"}}
	v := rec.View()
	if v.Image != nil {
		t.Fatal("expected nil image")
	}
	if v.Tags == nil {
		t.Fatal("expected empty tags slice")
	}

	rec.Image = &Image{Data: []byte("hi"), ContentType: "image/png"}
	v = rec.View()
	if v.Image == nil || *v.Image != "aGk=" {
		t.Fatalf("unexpected image encoding: %v", v.Image)
	}
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error kind %s", kind)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got: %v", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("unexpected kind: %s", appErr.Kind)
	}
}
