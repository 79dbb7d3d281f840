// Package report tells the user how a clip went. The clipper calls Start once,
// then exactly one of Success or Failure.
package report

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/metrics"
)

// Clip identifies the operation being reported.
type Clip struct {
	ID      string
	PageURL string
}

type Reporter interface {
	Start(ctx context.Context, clip Clip)
	Success(ctx context.Context, clip Clip, title, url string)
	Failure(ctx context.Context, clip Clip, message string)
}

// Log writes progress to a logger.
type Log struct {
	Logger logger.Logger
}

func (r Log) Start(_ context.Context, c Clip) {
	r.Logger.Info("clip started", logger.String("clip_id", c.ID), logger.String("page_url", c.PageURL))
}

func (r Log) Success(_ context.Context, c Clip, title, url string) {
	r.Logger.Info("document created",
		logger.String("clip_id", c.ID),
		logger.String("title", title),
		logger.String("url", url))
}

func (r Log) Failure(_ context.Context, c Clip, message string) {
	r.Logger.Error("clip failed", logger.String("clip_id", c.ID), logger.String("message", message))
}

// Metrics counts clips by outcome.
type Metrics struct{}

func (Metrics) Start(context.Context, Clip)                   { metrics.ClipStarted() }
func (Metrics) Success(context.Context, Clip, string, string) { metrics.ClipFinished(true) }
func (Metrics) Failure(context.Context, Clip, string)         { metrics.ClipFinished(false) }

// Multi fans out to every reporter in order.
type Multi []Reporter

func (m Multi) Start(ctx context.Context, c Clip) {
	for _, r := range m {
		r.Start(ctx, c)
	}
}

func (m Multi) Success(ctx context.Context, c Clip, title, url string) {
	for _, r := range m {
		r.Success(ctx, c, title, url)
	}
}

func (m Multi) Failure(ctx context.Context, c Clip, message string) {
	for _, r := range m {
		r.Failure(ctx, c, message)
	}
}

// Event is one call recorded by Recorder.
type Event struct {
	Kind    string // "start" | "success" | "failure"
	Clip    Clip
	Title   string
	URL     string
	Message string
}

// Recorder keeps every call in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Start(_ context.Context, c Clip) {
	r.add(Event{Kind: "start", Clip: c})
}

func (r *Recorder) Success(_ context.Context, c Clip, title, url string) {
	r.add(Event{Kind: "success", Clip: c, Title: title, URL: url})
}

func (r *Recorder) Failure(_ context.Context, c Clip, message string) {
	r.add(Event{Kind: "failure", Clip: c, Message: message})
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
