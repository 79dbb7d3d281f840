package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/clipper"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/settings"
)

// Clipper runs one clip.
type Clipper interface {
	Clip(ctx context.Context, req clipper.Request) (*clipper.Result, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time  // for testing, defaults to time.Now
	AllowedHosts   []string          // Host headers allowed to access the server
	AllowedCIDRS   []string          // IPs allowed to access the API and probes
	TrustProxy     bool              // true if running behind a trusted reverse proxy (e.g., cloudflared)
	AllowedOrigins []string          // CORS origins (browser extension ids)
	RateBurst      int               // /clip burst per client IP
	RatePerMin     int               // /clip refill per client IP per minute
	MaxBodyBytes   int64             // /clip request body limit
	Clipper        Clipper           // runs clips
	Cache          *cache.Service    // provisioning cache
	StoreKind      string            // "redis" | "memory"
	Settings       settings.Provider // Outline endpoint settings
}
