package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/PabloPavan/snipshare_api/internal"
	"github.com/PabloPavan/snipshare_api/internal/comments"
	"github.com/PabloPavan/snipshare_api/internal/db"
	"github.com/PabloPavan/snipshare_api/internal/httpapi"
	"github.com/PabloPavan/snipshare_api/internal/snippets"
	"github.com/PabloPavan/snipshare_api/internal/taglock"
	"github.com/PabloPavan/snipshare_api/internal/tags"
)

type testEnv struct {
	baseURL string
	server  *httptest.Server
	db      *db.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.New(ctx, databaseURL, 4)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	base := db.NewBase(pool.Pool, 3*time.Second)

	app := &httpapi.App{
		ServiceName: "snipshare-api-test",
		Health:      &httpapi.HealthHandler{DB: base},
		Config:      &httpapi.ConfigHandler{BaseURL: "http://localhost"},
		Snippets: &httpapi.SnippetsHandler{
			Service:        &snippets.Service{Store: snippets.NewRepository(base), Locker: taglock.NewMemory()},
			MaxUploadBytes: 1 << 20,
		},
		Tags:     &httpapi.TagsHandler{Service: &tags.Service{Store: tags.NewRepository(base)}},
		Comments: &httpapi.CommentsHandler{Service: &comments.Service{Store: comments.NewRepository(base)}},
	}

	srv := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(srv.Close)

	return &testEnv{
		baseURL: srv.URL,
		server:  srv,
		db:      pool,
	}
}

// uniq keeps rows from concurrent or repeated runs apart in a shared database.
func uniq(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, internal.RandomHex(6))
}

func postSnippet(env *testEnv, title, body string, tagList []string, image []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", title)
	_ = mw.WriteField("snip", body)
	if tagList != nil {
		raw, err := json.Marshal(tagList)
		if err != nil {
			return "", err
		}
		_ = mw.WriteField("tags", string(raw))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "shot.png")
		if err != nil {
			return "", err
		}
		_, _ = fw.Write(image)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	res, err := http.Post(env.baseURL+"/submit-snip-with-tags", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit status: %d", res.StatusCode)
	}

	var out httpapi.SubmitResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SnipID == "" {
		return "", fmt.Errorf("submit missing snip_id")
	}
	return out.SnipID, nil
}

func cleanupSnippet(t *testing.T, env *testEnv, id string) {
	t.Cleanup(func() {
		_, _ = env.db.Pool.Exec(context.Background(), `DELETE FROM snippets WHERE id = $1`, id)
	})
}

func submit(t *testing.T, env *testEnv, title, body string, tagList []string, image []byte) string {
	t.Helper()

	id, err := postSnippet(env, title, body, tagList, image)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	cleanupSnippet(t, env, id)
	return id
}

func cleanupTag(t *testing.T, env *testEnv, key string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = env.db.Pool.Exec(context.Background(), `DELETE FROM tags WHERE name_key = $1`, key)
	})
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if code := getJSON(t, env.baseURL+"/health", nil); code != http.StatusOK {
		t.Fatalf("health status: %d", code)
	}
}

func TestSubmitAndGetSnippet(t *testing.T) {
	env := newTestEnv(t)

	tag := uniq("IntTag")
	cleanupTag(t, env, snippets.FoldTag(tag))
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	id := submit(t, env, "Integration", "fmt.Println(1)", []string{tag}, png)

	var view snippets.View
	if code := getJSON(t, env.baseURL+"/api/snip/"+id, &view); code != http.StatusOK {
		t.Fatalf("get status: %d", code)
	}
	if view.Title != "Integration" || view.Snip != "fmt.Println(1)" {
		t.Fatalf("unexpected snippet: %+v", view)
	}
	if len(view.Tags) != 1 || view.Tags[0] != tag {
		t.Fatalf("unexpected tags: %v", view.Tags)
	}
	if view.Image == nil || *view.Image == "" {
		t.Fatal("expected base64 image")
	}

	res, err := http.Get(env.baseURL + "/api/snip/" + id + "/image")
	if err != nil {
		t.Fatalf("image request: %v", err)
	}
	_ = res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("image status: %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("image content type: %q", ct)
	}
}

func TestGetMissingSnippet(t *testing.T) {
	env := newTestEnv(t)

	if code := getJSON(t, env.baseURL+"/api/snip/snp_missing", nil); code != http.StatusNotFound {
		t.Fatalf("missing snippet status: %d", code)
	}
}

func TestConcurrentSubmitsShareTag(t *testing.T) {
	env := newTestEnv(t)

	shared := uniq("shared")
	cleanupTag(t, env, shared)

	const workers = 6
	var wg sync.WaitGroup
	ids := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = postSnippet(env, fmt.Sprintf("c%d", i), "body", []string{shared}, nil)
		}(i)
	}
	wg.Wait()
	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("submit %d: %v", i, errs[i])
		}
		cleanupSnippet(t, env, ids[i])
	}

	var n int
	err := env.db.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM tags WHERE name_key = $1`, shared).Scan(&n)
	if err != nil {
		t.Fatalf("count tags: %v", err)
	}
	if n != 1 {
		t.Fatalf("tag rows for %s: %d", shared, n)
	}

	var links int
	err = env.db.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM snippet_tags st JOIN tags t ON t.id = st.tag_id WHERE t.name_key = $1`, shared).Scan(&links)
	if err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != workers {
		t.Fatalf("links for %s: %d", shared, links)
	}
}

func TestSearchByTitleAndTag(t *testing.T) {
	env := newTestEnv(t)

	needle := uniq("needle")
	cleanupTag(t, env, needle)
	byTitle := submit(t, env, "About "+needle, "x", nil, nil)
	byTag := submit(t, env, "other", "y", []string{needle}, nil)

	var list []snippets.Preview
	q := url.Values{"query": {needle}}
	if code := getJSON(t, env.baseURL+"/api/search-snips?"+q.Encode(), &list); code != http.StatusOK {
		t.Fatalf("search status: %d", code)
	}

	found := map[string]bool{}
	for _, p := range list {
		found[p.ID] = true
	}
	if len(list) != 2 || !found[byTitle] || !found[byTag] {
		t.Fatalf("unexpected search result: %+v", list)
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	env := newTestEnv(t)

	id := submit(t, env, "commented", "z", nil, nil)

	for _, text := range []string{"first", "second"} {
		payload, _ := json.Marshal(httpapi.CommentCreateDTO{SnipID: id, Comment: text})
		res, err := http.Post(env.baseURL+"/api/comments", "application/json", bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("comment request: %v", err)
		}
		_ = res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("comment status: %d", res.StatusCode)
		}
		time.Sleep(5 * time.Millisecond)
	}

	var list []comments.Comment
	if code := getJSON(t, env.baseURL+"/api/comments/"+id, &list); code != http.StatusOK {
		t.Fatalf("list comments status: %d", code)
	}
	if len(list) != 2 || list[0].Body != "second" || list[1].Body != "first" {
		t.Fatalf("unexpected comments: %+v", list)
	}

	payload, _ := json.Marshal(httpapi.CommentCreateDTO{SnipID: "snp_missing", Comment: "hi"})
	res, err := http.Post(env.baseURL+"/api/comments", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("comment request: %v", err)
	}
	_ = res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("comment on missing snippet status: %d", res.StatusCode)
	}
}
