package snippets

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
	"github.com/PabloPavan/snipshare_api/internal/db"
)

func newTestService(t *testing.T) (*Service, *db.SQLite) {
	t.Helper()
	s, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "snippets.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return &Service{Store: NewSQLiteRepository(s)}, s
}

func submit(t *testing.T, svc *Service, req SubmitRequest) *Snippet {
	t.Helper()
	sn, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	return sn
}

func TestSQLiteSubmitAndGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	img := &Image{Data: []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}, ContentType: "image/png"}
	sn := submit(t, svc, SubmitRequest{
		Title:    "Hello",
		Body:     "print('hi')",
		Language: "python",
		Tags:     []string{"py", "basics"},
		Image:    img,
	})
	assert.False(t, sn.CreatedAt.IsZero())

	rec, err := svc.Get(ctx, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", rec.Title)
	assert.Equal(t, "print('hi')", rec.Body)
	assert.Equal(t, "python", rec.Language)
	assert.ElementsMatch(t, []string{"py", "basics"}, rec.Tags)
	require.NotNil(t, rec.Image)
	assert.Equal(t, img.Data, rec.Image.Data)

	v := rec.View()
	require.NotNil(t, v.Image)
	assert.Equal(t, "iVBORwD/", *v.Image)
}

func TestSQLiteGetWithoutImageOrTags(t *testing.T) {
	svc, _ := newTestService(t)

	sn := submit(t, svc, SubmitRequest{Title: "plain", Body: "x"})

	rec, err := svc.Get(context.Background(), sn.ID)
	require.NoError(t, err)
	assert.Nil(t, rec.Image)
	assert.Equal(t, []string{}, rec.Tags)
	assert.Equal(t, DefaultLanguage, rec.Language)
}

func TestSQLiteGetMissing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "snp_nope")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.Image(context.Background(), "snp_nope")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestSQLiteTagsAreShared(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	submit(t, svc, SubmitRequest{Title: "a", Body: "a", Tags: []string{"Go"}})
	submit(t, svc, SubmitRequest{Title: "b", Body: "b", Tags: []string{"go", "cli"}})

	var n int
	require.NoError(t, s.Q().QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n))
	assert.Equal(t, 2, n)

	var name string
	require.NoError(t, s.Q().QueryRowContext(ctx, `SELECT name FROM tags WHERE name_key = 'go'`).Scan(&name))
	assert.Equal(t, "Go", name)
}

func TestSQLiteDuplicateTagsInOneSubmission(t *testing.T) {
	svc, s := newTestService(t)

	sn := submit(t, svc, SubmitRequest{Title: "a", Body: "a", Tags: []string{"x", "x", "X"}})

	var links int
	require.NoError(t, s.Q().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM snippet_tags WHERE snippet_id = ?`, sn.ID).Scan(&links))
	assert.Equal(t, 1, links)
}

func TestSQLiteConcurrentSubmitsShareTag(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, SubmitRequest{
				Title: fmt.Sprintf("s%d", i),
				Body:  "body",
				Tags:  []string{"shared", fmt.Sprintf("own%d", i)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var shared int
	require.NoError(t, s.Q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE name_key = 'shared'`).Scan(&shared))
	assert.Equal(t, 1, shared)

	var links int
	require.NoError(t, s.Q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippet_tags st JOIN tags t ON t.id = st.tag_id WHERE t.name_key = 'shared'`).Scan(&links))
	assert.Equal(t, workers, links)
}

func TestSQLiteDiscoverNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)

	long := ""
	for i := 0; i < 150; i++ {
		long += "x"
	}
	first := submit(t, svc, SubmitRequest{Title: "first", Body: long, Tags: []string{"a,b"}})
	time.Sleep(5 * time.Millisecond)
	second := submit(t, svc, SubmitRequest{Title: "second", Body: "short"})

	list, err := svc.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Len(t, list[1].Preview, PreviewLength)
	assert.Equal(t, []string{"a,b"}, list[1].Tags)
	assert.Equal(t, []string{}, list[0].Tags)
}

func TestSQLiteSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	byTitle := submit(t, svc, SubmitRequest{Title: "Golang tricks", Body: "x"})
	byTag := submit(t, svc, SubmitRequest{Title: "misc", Body: "y", Tags: []string{"GoLang", "web"}})
	submit(t, svc, SubmitRequest{Title: "python", Body: "z", Tags: []string{"py"}})
	submit(t, svc, SubmitRequest{Title: "100 percent", Body: "z"})

	list, err := svc.Search(ctx, "golang")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{byTitle.ID, byTag.ID}, ids)

	for _, p := range list {
		if p.ID == byTag.ID {
			assert.ElementsMatch(t, []string{"GoLang", "web"}, p.Tags)
		}
	}

	none, err := svc.Search(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, none)

	empty, err := svc.Search(ctx, "rust")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLiteSearchFoldsNonASCIITitles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	umlaut := submit(t, svc, SubmitRequest{Title: "Über parser", Body: "x"})
	plain := submit(t, svc, SubmitRequest{Title: "Uber parser", Body: "y"})
	tagged := submit(t, svc, SubmitRequest{Title: "misc", Body: "z", Tags: []string{"Ärger"}})

	for _, q := range []string{"Über parser", "über", "ÜBER", "ber pars"} {
		list, err := svc.Search(ctx, q)
		require.NoError(t, err, q)
		ids := make([]string, 0, len(list))
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		assert.Contains(t, ids, umlaut.ID, q)
		if q == "ber pars" {
			assert.Contains(t, ids, plain.ID, q)
		} else {
			assert.NotContains(t, ids, plain.ID, q)
		}
	}

	list, err := svc.Search(ctx, "ärg")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tagged.ID, list[0].ID)
}

func TestSQLiteSubmitRollsBackOnFailure(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	svc.IDGenerator = func() string { return "snp_fixed" }
	submit(t, svc, SubmitRequest{Title: "a", Body: "a"})

	_, err := svc.Submit(ctx, SubmitRequest{Title: "b", Body: "b", Tags: []string{"orphan"}})
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))

	var n int
	require.NoError(t, s.Q().QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestSQLiteStats(t *testing.T) {
	svc, _ := newTestService(t)

	submit(t, svc, SubmitRequest{Title: "a", Body: "a", Tags: []string{"x", "y"}})
	submit(t, svc, SubmitRequest{Title: "b", Body: "b", Tags: []string{"x"}})

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Snippets: 2, Tags: 2}, st)
}
