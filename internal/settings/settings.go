// Package settings supplies the Outline endpoint a clip is filed to. Settings are
// resolved again for every clip, so an edited settings file takes effect without
// a restart.
package settings

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
)

// Settings is the user-editable endpoint configuration.
type Settings struct {
	OutlineURL     string `yaml:"outline_url"`
	APIToken       string `yaml:"api_token"`
	CollectionName string `yaml:"collection_name"`
}

// Validate fails with a Configuration error when the URL or token is missing.
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.OutlineURL) == "" {
		missing = append(missing, "Outline URL")
	}
	if strings.TrimSpace(s.APIToken) == "" {
		missing = append(missing, "API token")
	}
	if len(missing) > 0 {
		return clipperr.Configuration(fmt.Sprintf("%s not configured", strings.Join(missing, " and ")))
	}
	return nil
}

// Provider resolves the current settings.
type Provider interface {
	Load(ctx context.Context) (Settings, error)
}

// Static always returns the same settings.
type Static Settings

func (s Static) Load(context.Context) (Settings, error) {
	return Settings(s), nil
}

// File reads a YAML settings file on every Load. ${VAR} references are expanded
// from the environment, so the token can stay out of the file. Fields left empty
// fall back to Defaults.
type File struct {
	Path     string
	Defaults Settings
}

func NewFile(path string, defaults Settings) *File {
	return &File{Path: path, Defaults: defaults}
}

func (f *File) Load(context.Context) (Settings, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Settings{}, clipperr.Configuration(fmt.Sprintf("failed to read settings file: %v", err))
	}

	var s Settings
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return Settings{}, clipperr.Configuration(fmt.Sprintf("failed to parse settings file: %v", err))
	}

	if s.OutlineURL == "" {
		s.OutlineURL = f.Defaults.OutlineURL
	}
	if s.APIToken == "" {
		s.APIToken = f.Defaults.APIToken
	}
	if s.CollectionName == "" {
		s.CollectionName = f.Defaults.CollectionName
	}
	return s, nil
}
