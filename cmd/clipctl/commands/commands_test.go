package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type outlineStub struct {
	mu    sync.Mutex
	calls map[string]int
	docs  int
}

func (o *outlineStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	method := strings.TrimPrefix(r.URL.Path, "/api/")
	o.calls[method]++
	switch method {
	case "collections.create":
		_, _ = w.Write([]byte(`{"data":{"id":"col-1"}}`))
	case "documents.create":
		o.docs++
		_, _ = fmt.Fprintf(w, `{"data":{"id":"doc-%d","url":"/doc/doc-%d"}}`, o.docs, o.docs)
	default:
		http.NotFound(w, r)
	}
}

func setupEnv(t *testing.T) *outlineStub {
	t.Helper()
	stub := &outlineStub{calls: make(map[string]int)}
	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)

	t.Setenv("CLIP_STORE", "memory")
	t.Setenv("CLIP_OUTLINE_URL", ts.URL)
	t.Setenv("CLIP_OUTLINE_TOKEN", "token")
	t.Setenv("CLIP_SETTINGS_FILE", "")
	t.Setenv("CLIP_LOG_LEVEL", "error")
	t.Setenv("CLIP_PRETTY_LOG", "false")
	return stub
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClipCommand(t *testing.T) {
	stub := setupEnv(t)

	sel := filepath.Join(t.TempDir(), "sel.html")
	if err := os.WriteFile(sel, []byte("<p>Hello <strong>there</strong></p>"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "clip", "--json",
		"--url", "https://www.blog.test/post",
		"--title", "A Post",
		"--text", "Hello there",
		"--html-file", sel)
	if err != nil {
		t.Fatalf("clip error = %v", err)
	}

	var res struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		URL          string `json:"url"`
		FolderID     string `json:"folder_id"`
		CollectionID string `json:"collection_id"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.ID != "doc-2" || res.FolderID != "doc-1" || res.CollectionID != "col-1" {
		t.Errorf("unexpected result: %+v", res)
	}
	if !strings.HasSuffix(res.URL, "/doc/doc-2") {
		t.Errorf("url = %q", res.URL)
	}
	if res.Title != "A Post - Hello there" {
		t.Errorf("title = %q", res.Title)
	}
	if stub.calls["collections.create"] != 1 || stub.calls["documents.create"] != 2 {
		t.Errorf("calls = %v", stub.calls)
	}
}

func TestClipCommandValidation(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no selection", args: []string{"clip", "--url", "https://a.test"}, wantErr: "--text or --html-file"},
		{name: "missing html file", args: []string{"clip", "--html-file", "/nonexistent/sel.html"}, wantErr: "failed to read"},
		{name: "positional args", args: []string{"clip", "extra"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestClipCommandMissingSettings(t *testing.T) {
	stub := setupEnv(t)
	t.Setenv("CLIP_OUTLINE_TOKEN", "")

	_, err := run(t, "clip", "--text", "hello")
	if err == nil || err.Error() != "API token not configured" {
		t.Fatalf("error = %v, want configuration error", err)
	}
	if len(stub.calls) != 0 {
		t.Errorf("no Outline call expected, got %v", stub.calls)
	}
}

func TestFoldersCommandEmpty(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "folders")
	if err != nil {
		t.Fatalf("folders error = %v", err)
	}
	if !strings.Contains(out, "collection: (none)") || !strings.Contains(out, "DOMAIN") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestForgetCommandUnknownDomain(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "forget", "www.nowhere.test")
	if err == nil || !strings.Contains(err.Error(), "no folder cached for nowhere.test") {
		t.Errorf("error = %v", err)
	}

	if _, err := run(t, "forget"); err == nil {
		t.Error("forget without a domain should fail")
	}
}

func TestResetCommand(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "reset"); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("reset without --yes: error = %v", err)
	}

	out, err := run(t, "reset", "--yes")
	if err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if strings.TrimSpace(out) != "cache reset" {
		t.Errorf("output = %q", out)
	}
}

func TestAuditCommandEmptyCache(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "audit", "--json")
	if err != nil {
		t.Fatalf("audit error = %v", err)
	}
	var res map[string]int
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res["checked"] != 0 || res["forgotten"] != 0 {
		t.Errorf("result = %v", res)
	}
}

func TestMissingRedisAddressIsAnError(t *testing.T) {
	setupEnv(t)
	t.Setenv("CLIP_STORE", "redis")
	t.Setenv("CLIP_REDIS_ADDR", "")

	_, err := run(t, "folders")
	if err == nil {
		t.Fatal("folders should fail without CLIP_REDIS_ADDR")
	}
	if !strings.Contains(err.Error(), "CLIP_REDIS_ADDR") || strings.Contains(err.Error(), "FATAL") {
		t.Errorf("error = %q", err)
	}
}
