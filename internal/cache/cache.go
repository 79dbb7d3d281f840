// Package cache persists the provisioning state: the clippings collection ID and
// the domain -> folder document ID map. Both live under fixed keys of a durable
// key-value Store and never expire.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
)

const (
	KeyCollectionID  = "clip:collection_id"
	KeyDomainFolders = "clip:domain_folders"
)

// Store is a durable key-value store. Get reports ok=false on a miss.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// Service is the typed view over a Store. Updates to the domain map are
// read-modify-write of the whole map, serialized by mu within this process.
type Service struct {
	store Store
	mu    sync.Mutex
}

func New(store Store) *Service {
	return &Service{store: store}
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Reset forgets the collection and every domain folder. Remote documents are untouched.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, KeyCollectionID, KeyDomainFolders); err != nil {
		return clipperr.Storage("failed to reset cache", err)
	}
	return nil
}

// CollectionID returns the cached collection ID, or "" when none is cached.
func (s *Service) CollectionID(ctx context.Context) (string, error) {
	raw, ok, err := s.store.Get(ctx, KeyCollectionID)
	if err != nil {
		return "", clipperr.Storage("failed to read collection id", err)
	}
	if !ok {
		return "", nil
	}
	return string(raw), nil
}

// SetCollectionID caches the collection ID.
func (s *Service) SetCollectionID(ctx context.Context, id string) error {
	if err := s.store.Set(ctx, KeyCollectionID, []byte(id)); err != nil {
		return clipperr.Storage("failed to save collection id", err)
	}
	return nil
}

// DomainFolders returns a copy of the domain -> folder ID map.
func (s *Service) DomainFolders(ctx context.Context) (map[string]string, error) {
	raw, ok, err := s.store.Get(ctx, KeyDomainFolders)
	if err != nil {
		return nil, clipperr.Storage("failed to read domain folders", err)
	}
	folders := make(map[string]string)
	if !ok || len(raw) == 0 {
		return folders, nil
	}
	if err := json.Unmarshal(raw, &folders); err != nil {
		return nil, clipperr.Storage("failed to decode domain folders", err)
	}
	return folders, nil
}

// DomainFolder returns the folder cached for domain, or "" on a miss.
func (s *Service) DomainFolder(ctx context.Context, domain string) (string, error) {
	folders, err := s.DomainFolders(ctx)
	if err != nil {
		return "", err
	}
	return folders[domain], nil
}

// SetDomainFolder stores (or overwrites) the mapping and persists the whole map.
func (s *Service) SetDomainFolder(ctx context.Context, domain, folderID string) error {
	return s.update(ctx, func(folders map[string]string) bool {
		folders[domain] = folderID
		return true
	})
}

// ForgetDomainFolder drops the mapping for domain. It reports whether one existed.
func (s *Service) ForgetDomainFolder(ctx context.Context, domain string) (bool, error) {
	existed := false
	err := s.update(ctx, func(folders map[string]string) bool {
		_, existed = folders[domain]
		delete(folders, domain)
		return existed
	})
	return existed, err
}

// ForgetIf drops the mapping for domain only while it still points at folderID,
// so a concurrent re-provision is not undone.
func (s *Service) ForgetIf(ctx context.Context, domain, folderID string) (bool, error) {
	removed := false
	err := s.update(ctx, func(folders map[string]string) bool {
		if folders[domain] != folderID {
			return false
		}
		delete(folders, domain)
		removed = true
		return true
	})
	return removed, err
}

func (s *Service) update(ctx context.Context, mutate func(map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.DomainFolders(ctx)
	if err != nil {
		return err
	}
	if !mutate(folders) {
		return nil
	}

	raw, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("failed to encode domain folders: %w", err)
	}
	if err := s.store.Set(ctx, KeyDomainFolders, raw); err != nil {
		return clipperr.Storage("failed to save domain folders", err)
	}
	return nil
}

// Entry is one domain folder mapping.
type Entry struct {
	Domain   string `json:"domain"`
	FolderID string `json:"folder_id"`
}

// Entries returns the mappings sorted by domain.
func (s *Service) Entries(ctx context.Context) ([]Entry, error) {
	folders, err := s.DomainFolders(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(folders))
	for d, id := range folders {
		entries = append(entries, Entry{Domain: d, FolderID: id})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Domain < entries[j].Domain })
	return entries, nil
}
