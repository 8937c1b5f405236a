package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeStrapi struct {
	t *testing.T

	mu         sync.Mutex
	requests   int
	existing   []string
	failUpload map[string]bool
	uploaded   []string
	entryPaths []string
	entries    []map[string]any
}

func newFakeStrapi(t *testing.T) (*fakeStrapi, *httptest.Server) {
	t.Helper()
	f := &fakeStrapi{t: t, failUpload: map[string]bool{}}
	server := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeStrapi) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()

	if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
		f.t.Errorf("Authorization = %q, want Bearer token-123", got)
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/upload/files":
		f.mu.Lock()
		defer f.mu.Unlock()
		items := make([]map[string]any, 0, len(f.existing))
		for i, name := range f.existing {
			items = append(items, map[string]any{"id": 100 + i, "name": name, "mime": "image/png", "url": "/uploads/existing_" + name})
		}
		_ = json.NewEncoder(w).Encode(items)

	case r.Method == http.MethodPost && r.URL.Path == "/api/upload":
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = io.Copy(io.Discard, part)
		name := part.FileName()

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUpload[name] {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"data":null,"error":{"status":500,"message":"storage unavailable"}}`)
			return
		}
		f.uploaded = append(f.uploaded, name)
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id":   len(f.uploaded),
			"name": name,
			"mime": part.Header.Get("Content-Type"),
			"url":  "/uploads/" + name,
		}})

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/"):
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.entryPaths = append(f.entryPaths, r.URL.Path)
		f.entries = append(f.entries, body)
		fmt.Fprintf(w, `{"data":{"id":%d,"documentId":"doc-%d"},"meta":{}}`, len(f.entries), len(f.entries))

	default:
		http.NotFound(w, r)
	}
}

// setupEnv points the config at server and the vault at vault. It returns
// the history database path.
func setupEnv(t *testing.T, serverURL, vault string) string {
	t.Helper()
	historyDB := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("OSU_STRAPI_HOST", "")
	t.Setenv("OSU_AUTH_TOKEN", "")
	t.Setenv("OSU_CONTENT_TYPE", "")
	t.Setenv("STRAPI_HOST", serverURL)
	t.Setenv("STRAPI_API_TOKEN", "token-123")
	t.Setenv("OSU_VAULT", vault)
	t.Setenv("OSU_HISTORY_DB", historyDB)
	return historyDB
}

func writeVaultFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", p, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func chdirVault(t *testing.T, dir string) {
	t.Helper()
	prevDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir vault: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevDir) })
}
