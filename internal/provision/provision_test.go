package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/clipperr"
	"github.com/MrSnakeDoc/clip/internal/outline"
	"github.com/MrSnakeDoc/clip/internal/store/memory"
)

// fakeRemote is an in-memory Outline. Documents listed in gone report deletedAt.
type fakeRemote struct {
	mu          sync.Mutex
	collections int
	created     []outline.DocumentInput
	probes      []string
	gone        map[string]bool
	probeErr    error
	createDelay time.Duration

	// When hold is set, CreateDocument signals entered and then waits for hold
	// to close or for its ctx to end.
	hold    chan struct{}
	entered chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{gone: make(map[string]bool)}
}

func (f *fakeRemote) CreateCollection(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections++
	return fmt.Sprintf("col-%d", f.collections), nil
}

func (f *fakeRemote) CreateDocument(ctx context.Context, in outline.DocumentInput) (*outline.Document, error) {
	time.Sleep(f.createDelay)
	if f.hold != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		select {
		case <-f.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return &outline.Document{ID: fmt.Sprintf("doc-%d", len(f.created)), Title: in.Title}, nil
}

func (f *fakeRemote) GetDocument(_ context.Context, id string) (*outline.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, id)
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	doc := &outline.Document{ID: id}
	if f.gone[id] {
		now := time.Now()
		doc.DeletedAt = &now
	}
	return doc, nil
}

func (f *fakeRemote) counts() (creates, probes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created), len(f.probes)
}

func newTestProvisioner() (*Provisioner, *fakeRemote, *cache.Service) {
	remote := newFakeRemote()
	svc := cache.New(memory.New())
	return New(remote, svc, "", nil), remote, svc
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "example.com", want: "example.com"},
		{in: "www.example.com", want: "example.com"},
		{in: "www.Example.com", want: "Example.com"},
		{in: "Example.com", want: "Example.com"},
		{in: "www.www.example.com", want: "www.example.com"},
		{in: "wwwexample.com", want: "wwwexample.com"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://www.example.com/post/1?x=y", want: "example.com"},
		{in: "http://blog.test:8080/a", want: "blog.test"},
		{in: "file:///home/me/page.html", want: ""},
		{in: "about:blank", want: ""},
		{in: "::not a url", want: ""},
	}

	for _, tt := range tests {
		if got := DomainFromURL(tt.in); got != tt.want {
			t.Errorf("DomainFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollectionCreatedOnce(t *testing.T) {
	ctx := context.Background()
	p, remote, svc := newTestProvisioner()

	first, err := p.Collection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Collection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Collection() changed: %q then %q", first, second)
	}
	if remote.collections != 1 {
		t.Errorf("collections created = %d, want 1", remote.collections)
	}
	if cached, _ := svc.CollectionID(ctx); cached != first {
		t.Errorf("cached collection = %q, want %q", cached, first)
	}
}

func TestDomainFolderDistinctDomains(t *testing.T) {
	ctx := context.Background()
	p, _, svc := newTestProvisioner()

	a, err := p.DomainFolder(ctx, "a.test", "col-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.DomainFolder(ctx, "www.b.test", "col-1")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("distinct domains share folder %q", a)
	}

	folders, _ := svc.DomainFolders(ctx)
	if folders["a.test"] != a || folders["b.test"] != b {
		t.Errorf("cache = %v, want a.test=%s b.test=%s", folders, a, b)
	}
}

func TestDomainFolderIdempotent(t *testing.T) {
	ctx := context.Background()
	p, remote, _ := newTestProvisioner()

	first, err := p.DomainFolder(ctx, "example.com", "col-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.DomainFolder(ctx, "example.com", "col-1")
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("ids differ: %q vs %q", first, second)
	}
	creates, probes := remote.counts()
	if creates != 1 || probes != 1 {
		t.Errorf("creates=%d probes=%d, want 1 and 1", creates, probes)
	}

	in := remote.created[0]
	if in.Title != "example.com" || in.Text != "Folder for clippings from example.com" ||
		in.CollectionID != "col-1" || in.ParentDocumentID != "" || in.Draft {
		t.Errorf("unexpected folder payload: %+v", in)
	}
}

func TestDomainFolderSelfHeals(t *testing.T) {
	ctx := context.Background()
	p, remote, svc := newTestProvisioner()

	old, err := p.DomainFolder(ctx, "example.com", "col-1")
	if err != nil {
		t.Fatal(err)
	}
	remote.gone[old] = true

	fresh, err := p.DomainFolder(ctx, "example.com", "col-1")
	if err != nil {
		t.Fatal(err)
	}
	if fresh == old {
		t.Fatal("deleted folder was reused")
	}
	if cached, _ := svc.DomainFolder(ctx, "example.com"); cached != fresh {
		t.Errorf("cache = %q, want overwritten with %q", cached, fresh)
	}
	if creates, _ := remote.counts(); creates != 2 {
		t.Errorf("creates = %d, want 2", creates)
	}
}

func TestDomainFolderNormalization(t *testing.T) {
	ctx := context.Background()
	p, remote, _ := newTestProvisioner()

	a, _ := p.DomainFolder(ctx, "www.Example.com", "col-1")
	b, _ := p.DomainFolder(ctx, "Example.com", "col-1")
	if a != b {
		t.Errorf("www.Example.com -> %q, Example.com -> %q, want same folder", a, b)
	}

	// case is not folded
	c, _ := p.DomainFolder(ctx, "example.com", "col-1")
	if c == a {
		t.Error("example.com and Example.com share a folder, want distinct keys")
	}
	if creates, _ := remote.counts(); creates != 2 {
		t.Errorf("creates = %d, want 2", creates)
	}
}

func TestDomainFolderProbeError(t *testing.T) {
	ctx := context.Background()
	p, remote, svc := newTestProvisioner()

	id, _ := p.DomainFolder(ctx, "example.com", "col-1")
	remote.probeErr = clipperr.Network(errors.New("connection reset"))

	if _, err := p.DomainFolder(ctx, "example.com", "col-1"); !clipperr.Is(err, clipperr.KindNetwork) {
		t.Fatalf("error = %v, want network error", err)
	}
	if cached, _ := svc.DomainFolder(ctx, "example.com"); cached != id {
		t.Errorf("transport failure must not touch the cache, got %q", cached)
	}
}

func TestDomainFolderConcurrent(t *testing.T) {
	ctx := context.Background()
	p, remote, _ := newTestProvisioner()
	remote.createDelay = 20 * time.Millisecond

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := p.DomainFolder(ctx, "race.test", "col-1")
			if err != nil {
				t.Error(err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent calls returned different folders: %v", ids)
		}
	}
	if creates, _ := remote.counts(); creates != 1 {
		t.Errorf("creates = %d, want 1", creates)
	}
}

func TestDomainFolderEmpty(t *testing.T) {
	p, _, _ := newTestProvisioner()
	if _, err := p.DomainFolder(context.Background(), "www.", "col-1"); err == nil {
		t.Error("expected error for empty domain")
	}
}

func TestDomainFolderSurvivesFirstCallerCancel(t *testing.T) {
	p, remote, svc := newTestProvisioner()
	remote.hold = make(chan struct{})
	remote.entered = make(chan struct{}, 1)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.DomainFolder(firstCtx, "x.test", "col-1")
		firstErr <- err
	}()
	<-remote.entered

	type result struct {
		id  string
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, err := p.DomainFolder(context.Background(), "x.test", "col-1")
		second <- result{id, err}
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller error = %v, want context.Canceled", err)
	}

	time.Sleep(20 * time.Millisecond)
	close(remote.hold)

	res := <-second
	if res.err != nil {
		t.Fatalf("second caller error = %v", res.err)
	}
	if res.id != "doc-1" {
		t.Errorf("id = %q, want doc-1", res.id)
	}
	if cached, _ := svc.DomainFolder(context.Background(), "x.test"); cached != "doc-1" {
		t.Errorf("cached = %q, want doc-1", cached)
	}
	if creates, _ := remote.counts(); creates != 1 {
		t.Errorf("creates = %d, want 1", creates)
	}
}

func TestDomainFolderFlightTimeout(t *testing.T) {
	p, remote, _ := newTestProvisioner()
	p.FlightTimeout = 20 * time.Millisecond
	remote.hold = make(chan struct{})
	remote.entered = make(chan struct{}, 1)
	defer close(remote.hold)

	_, err := p.DomainFolder(context.Background(), "slow.test", "col-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}
