// Package provision resolves the remote containers a clipping is filed under: the
// clippings collection and one folder document per website. Both are created
// lazily and remembered in the cache.
package provision

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/metrics"
	"github.com/MrSnakeDoc/clip/internal/outline"
)

// DefaultCollectionName is used when no name is configured.
const DefaultCollectionName = "Chrome Clippings"

const (
	actionHit       = "hit"
	actionCreated   = "created"
	actionRecreated = "recreated"

	collectionFlightKey = "\x00collection"

	// DefaultFlightTimeout bounds one shared resolution, retries included.
	DefaultFlightTimeout = 2 * time.Minute
)

// Remote is the part of the Outline client the provisioner needs.
type Remote interface {
	CreateCollection(ctx context.Context, name string) (string, error)
	CreateDocument(ctx context.Context, in outline.DocumentInput) (*outline.Document, error)
	GetDocument(ctx context.Context, id string) (*outline.Document, error)
}

// Provisioner implements get-or-create over a Remote and a cache.Service.
// Concurrent calls for the same domain share one resolution. The shared work is
// detached from the callers' cancellation: a caller that gives up stops waiting,
// the others still get the result.
type Provisioner struct {
	remote         Remote
	cache          *cache.Service
	collectionName string
	log            logger.Logger
	group          singleflight.Group

	// FlightTimeout bounds each shared resolution. Zero means DefaultFlightTimeout.
	FlightTimeout time.Duration
}

func New(remote Remote, c *cache.Service, collectionName string, log logger.Logger) *Provisioner {
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Provisioner{
		remote:         remote,
		cache:          c,
		collectionName: collectionName,
		log:            log,
	}
}

// Collection returns the cached collection ID, creating the collection on first
// use. A cached ID is trusted without a liveness check.
func (p *Provisioner) Collection(ctx context.Context) (string, error) {
	id, _, err := p.shared(ctx, collectionFlightKey, func(ctx context.Context) (string, error) {
		id, err := p.cache.CollectionID(ctx)
		if err != nil {
			return "", err
		}
		if id != "" {
			metrics.RecordProvision("collection", actionHit)
			return id, nil
		}

		p.log.Info("creating clippings collection", logger.String("name", p.collectionName))
		id, err = p.remote.CreateCollection(ctx, p.collectionName)
		if err != nil {
			return "", fmt.Errorf("create collection: %w", err)
		}
		if err := p.cache.SetCollectionID(ctx, id); err != nil {
			return "", err
		}
		metrics.RecordProvision("collection", actionCreated)
		return id, nil
	})
	return id, err
}

// DomainFolder returns the folder document for domain inside collectionID. A
// cached folder is probed first; when the probe finds nothing, or finds it
// deleted or archived, a new folder is created and replaces the mapping.
func (p *Provisioner) DomainFolder(ctx context.Context, domain, collectionID string) (string, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return "", fmt.Errorf("domain folder: empty domain")
	}

	id, shared, err := p.shared(ctx, domain, func(ctx context.Context) (string, error) {
		return p.resolveFolder(ctx, domain, collectionID)
	})
	if err != nil {
		return "", err
	}
	if shared {
		p.log.Debug("domain folder resolution shared", logger.String("domain", domain))
	}
	return id, nil
}

// shared runs fn once for all concurrent callers of key. fn gets a context that
// keeps the first caller's values but not its cancellation, bounded by
// FlightTimeout. Each caller returns early with its own ctx error when it is done.
func (p *Provisioner) shared(ctx context.Context, key string, fn func(context.Context) (string, error)) (string, bool, error) {
	timeout := p.FlightTimeout
	if timeout <= 0 {
		timeout = DefaultFlightTimeout
	}

	ch := p.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Shared, res.Err
		}
		return res.Val.(string), res.Shared, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (p *Provisioner) resolveFolder(ctx context.Context, domain, collectionID string) (string, error) {
	cached, err := p.cache.DomainFolder(ctx, domain)
	if err != nil {
		return "", err
	}
	if cached == "" {
		return p.createFolder(ctx, domain, collectionID, actionCreated)
	}

	doc, err := p.remote.GetDocument(ctx, cached)
	if err != nil {
		return "", fmt.Errorf("probe folder for %s: %w", domain, err)
	}
	if doc == nil || doc.Gone() {
		p.log.Warn("cached domain folder is gone, recreating",
			logger.String("domain", domain),
			logger.String("folder_id", cached),
			logger.Bool("probe_failed", doc == nil))
		return p.createFolder(ctx, domain, collectionID, actionRecreated)
	}

	metrics.RecordProvision("folder", actionHit)
	return cached, nil
}

func (p *Provisioner) createFolder(ctx context.Context, domain, collectionID, action string) (string, error) {
	doc, err := p.remote.CreateDocument(ctx, outline.DocumentInput{
		Title:        domain,
		Text:         "Folder for clippings from " + domain,
		CollectionID: collectionID,
	})
	if err != nil {
		return "", fmt.Errorf("create folder for %s: %w", domain, err)
	}
	if err := p.cache.SetDomainFolder(ctx, domain, doc.ID); err != nil {
		return "", err
	}

	metrics.RecordProvision("folder", action)
	p.log.Info("domain folder provisioned",
		logger.String("domain", domain),
		logger.String("folder_id", doc.ID),
		logger.String("action", action))
	return doc.ID, nil
}
