package outline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
	"github.com/MrSnakeDoc/clip/internal/transport"
)

func noSleep(context.Context, time.Duration) error { return nil }

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	tr := transport.New(transport.Options{MaxRetries: 3, Sleep: noSleep})
	// trailing slash on purpose: the client must normalize it
	return New(ts.URL+"//", "test-token", tr, nil)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}
	return m
}

func TestCreateCollection(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var body map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"col-1","name":"Chrome Clippings"}}`))
	})

	id, err := c.CreateCollection(context.Background(), "Chrome Clippings")
	if err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	if id != "col-1" {
		t.Errorf("id = %q, want col-1", id)
	}
	if gotPath != "/api/collections.create" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if body["name"] != "Chrome Clippings" || body["permission"] != "read" || body["private"] != false {
		t.Errorf("unexpected payload: %v", body)
	}
}

func TestCreateDocumentOmitsBlankParent(t *testing.T) {
	tests := []struct {
		name       string
		parent     string
		wantParent bool
	}{
		{name: "empty parent", parent: "", wantParent: false},
		{name: "whitespace parent", parent: "   ", wantParent: false},
		{name: "real parent", parent: "folder-9", wantParent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				body = decodeBody(t, r)
				_, _ = w.Write([]byte(`{"data":{"id":"doc-1","title":"T","url":"/doc/t-abc"}}`))
			})

			doc, err := c.CreateDocument(context.Background(), DocumentInput{
				Title:            "T",
				Text:             "body",
				CollectionID:     "col-1",
				ParentDocumentID: tt.parent,
			})
			if err != nil {
				t.Fatalf("CreateDocument() error = %v", err)
			}
			if doc.ID != "doc-1" {
				t.Errorf("doc.ID = %q", doc.ID)
			}

			_, has := body["parentDocumentId"]
			if has != tt.wantParent {
				t.Errorf("parentDocumentId present = %v, want %v (payload %v)", has, tt.wantParent, body)
			}
			if body["publish"] != true {
				t.Errorf("publish = %v, want true", body["publish"])
			}
		})
	}
}

func TestCreateDocumentErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		wantMsg     string
	}{
		{
			name:        "json body",
			contentType: "application/json; charset=utf-8",
			body:        "{\n  \"ok\": false,\n  \"error\": \"authentication_required\"\n}",
			status:      http.StatusUnauthorized,
			wantMsg:     `Error (Status: 401) - {"ok":false,"error":"authentication_required"}`,
		},
		{
			name:        "text body",
			contentType: "text/plain",
			body:        "Bad Gateway",
			status:      http.StatusBadGateway,
			wantMsg:     "Error (Status: 502) - Bad Gateway",
		},
		{
			name:        "empty body",
			contentType: "text/plain",
			body:        "",
			status:      http.StatusForbidden,
			wantMsg:     "Error (Status: 403) - Document creation failed",
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        "{not json",
			status:      http.StatusBadRequest,
			wantMsg:     "Error (Status: 400) - Document creation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateDocument(context.Background(), DocumentInput{Title: "x", CollectionID: "c"})
			if !clipperr.Is(err, clipperr.KindRemoteAPI) {
				t.Fatalf("error = %v, want remote api error", err)
			}
			if clipperr.StatusOf(err) != tt.status {
				t.Errorf("status = %d, want %d", clipperr.StatusOf(err), tt.status)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			if calls != 1 {
				t.Errorf("HTTP errors must not be retried, got %d calls", calls)
			}
		})
	}
}

func TestGetDocument(t *testing.T) {
	t.Run("live document", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/documents.info" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if got := decodeBody(t, r)["id"]; got != "folder-1" {
				t.Errorf("id = %v", got)
			}
			_, _ = w.Write([]byte(`{"data":{"id":"folder-1","title":"example.com","deletedAt":null,"archivedAt":null}}`))
		})

		doc, err := c.GetDocument(context.Background(), "folder-1")
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if doc == nil || doc.Gone() {
			t.Fatalf("doc = %+v, want live document", doc)
		}
	})

	t.Run("deleted document", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"id":"folder-1","deletedAt":"2025-01-02T03:04:05.000Z"}}`))
		})

		doc, err := c.GetDocument(context.Background(), "folder-1")
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if doc == nil || !doc.Gone() {
			t.Fatalf("doc = %+v, want deleted document", doc)
		}
	})

	t.Run("non-OK is absent", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		})

		doc, err := c.GetDocument(context.Background(), "missing")
		if err != nil {
			t.Fatalf("GetDocument() error = %v, want nil", err)
		}
		if doc != nil {
			t.Errorf("doc = %+v, want nil", doc)
		}
	})
}

func TestDocumentURL(t *testing.T) {
	c := New("https://notes.example.com/", "t", transport.New(transport.Options{}), nil)

	tests := []struct {
		name string
		doc  *Document
		want string
	}{
		{name: "relative", doc: &Document{ID: "1", URL: "/doc/hello-abc"}, want: "https://notes.example.com/doc/hello-abc"},
		{name: "absolute", doc: &Document{ID: "1", URL: "https://other.example.com/doc/x"}, want: "https://other.example.com/doc/x"},
		{name: "missing", doc: &Document{ID: "42"}, want: "https://notes.example.com/doc/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.DocumentURL(tt.doc); got != tt.want {
				t.Errorf("DocumentURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	for in, want := range map[string]string{
		"https://notes.example.com":    "https://notes.example.com",
		"https://notes.example.com///": "https://notes.example.com",
		" https://n.example.com/ ":     "https://n.example.com",
	} {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
	if !strings.HasSuffix(New("https://x.test/", "", nil, nil).BaseURL(), "x.test") {
		t.Error("New() must normalize the base URL")
	}
}
