package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr string
	}{
		{name: "complete", s: Settings{OutlineURL: "https://n.test", APIToken: "tok"}},
		{name: "no url", s: Settings{APIToken: "tok"}, wantErr: "Outline URL not configured"},
		{name: "blank token", s: Settings{OutlineURL: "https://n.test", APIToken: "  "}, wantErr: "API token not configured"},
		{name: "nothing", wantErr: "Outline URL and API token not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !clipperr.Is(err, clipperr.KindConfiguration) {
				t.Fatalf("Validate() error = %v, want configuration error", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Validate() = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFileLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	t.Setenv("CLIP_TEST_TOKEN", "from-env")

	content := `---
outline_url: https://notes.example.com
api_token: ${CLIP_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}

	f := NewFile(path, Settings{CollectionName: "Chrome Clippings", OutlineURL: "https://ignored.test"})
	s, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Settings{OutlineURL: "https://notes.example.com", APIToken: "from-env", CollectionName: "Chrome Clippings"}
	if s != want {
		t.Errorf("Load() = %+v, want %+v", s, want)
	}

	// edits are picked up on the next Load
	if err := os.WriteFile(path, []byte("outline_url: https://other.test\napi_token: t2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, _ = f.Load(context.Background())
	if s.OutlineURL != "https://other.test" || s.APIToken != "t2" {
		t.Errorf("Load() after edit = %+v", s)
	}
}

func TestFileLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFile(filepath.Join(dir, "missing.yaml"), Settings{}).Load(context.Background())
	if !clipperr.Is(err, clipperr.KindConfiguration) {
		t.Errorf("missing file: error = %v, want configuration error", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("outline_url: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = NewFile(bad, Settings{}).Load(context.Background())
	if !clipperr.Is(err, clipperr.KindConfiguration) {
		t.Errorf("bad yaml: error = %v, want configuration error", err)
	}
}

func TestStatic(t *testing.T) {
	s, err := Static{OutlineURL: "u", APIToken: "t"}.Load(context.Background())
	if err != nil || s.OutlineURL != "u" || s.APIToken != "t" {
		t.Errorf("Static.Load() = %+v, %v", s, err)
	}
}
