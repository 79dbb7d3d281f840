// Package clipper runs one clip end to end: it resolves where the clipping goes,
// converts the selection, and files the document in Outline.
package clipper

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/clipperr"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/markdown"
	"github.com/MrSnakeDoc/clip/internal/outline"
	"github.com/MrSnakeDoc/clip/internal/provision"
	"github.com/MrSnakeDoc/clip/internal/report"
	"github.com/MrSnakeDoc/clip/internal/settings"
)

// Remote is the Outline API as seen by one clip.
type Remote interface {
	provision.Remote
	DocumentURL(doc *outline.Document) string
}

// Connector builds a Remote for the given settings.
type Connector func(s settings.Settings) Remote

// Request is what the user clipped.
type Request struct {
	PageURL       string `json:"page_url"`
	PageTitle     string `json:"page_title"`
	SelectionText string `json:"selection_text"`
	SelectionHTML string `json:"selection_html,omitempty"`
	// PageHTML is only read for author and published meta tags.
	PageHTML  string `json:"page_html,omitempty"`
	Author    string `json:"author,omitempty"`
	Published string `json:"published,omitempty"`
}

// Result describes the created clipping.
type Result struct {
	ClipID       string `json:"clip_id"`
	DocumentID   string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	FolderID     string `json:"folder_id,omitempty"`
	CollectionID string `json:"collection_id"`
}

type Options struct {
	Settings settings.Provider
	Cache    *cache.Service
	Connect  Connector
	Reporter report.Reporter
	Logger   logger.Logger

	Now   func() time.Time // defaults to time.Now
	NewID func() string    // defaults to uuid.NewString
}

type Clipper struct {
	settings settings.Provider
	cache    *cache.Service
	connect  Connector
	reporter report.Reporter
	log      logger.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	session *session
}

// session is the Remote and Provisioner for one set of settings. Clips with the
// same settings share it, and with it the per-domain de-duplication.
type session struct {
	settings settings.Settings
	remote   Remote
	prov     *provision.Provisioner
}

func New(opts Options) *Clipper {
	c := &Clipper{
		settings: opts.Settings,
		cache:    opts.Cache,
		connect:  opts.Connect,
		reporter: opts.Reporter,
		log:      opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.reporter == nil {
		c.reporter = report.Log{Logger: c.log}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Clip files req in Outline. Whatever step fails, the reporter receives exactly
// one Failure and nothing already created is rolled back.
func (c *Clipper) Clip(ctx context.Context, req Request) (*Result, error) {
	rc := report.Clip{ID: c.newID(), PageURL: req.PageURL}
	c.reporter.Start(ctx, rc)

	res, err := c.clip(ctx, rc, req)
	if err != nil {
		c.log.Debug("clip aborted",
			logger.String("clip_id", rc.ID),
			logger.String("kind", clipperr.KindOf(err).String()),
			logger.Error(err))
		c.reporter.Failure(ctx, rc, err.Error())
		return nil, err
	}

	c.reporter.Success(ctx, rc, res.Title, res.URL)
	return res, nil
}

func (c *Clipper) clip(ctx context.Context, rc report.Clip, req Request) (*Result, error) {
	s, err := c.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sess := c.sessionFor(s)
	log := c.log.With(logger.String("clip_id", rc.ID))

	collectionID, err := sess.prov.Collection(ctx)
	if err != nil {
		return nil, err
	}

	var folderID string
	if domain := provision.DomainFromURL(req.PageURL); domain != "" {
		folderID, err = sess.prov.DomainFolder(ctx, domain, collectionID)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("page url has no host, filing at collection root", logger.String("page_url", req.PageURL))
	}

	meta := c.pageMeta(log, req)
	title := BuildTitle(req.PageTitle, req.SelectionText)
	preamble := Preamble{
		Title:     strings.TrimSpace(req.PageTitle),
		Source:    req.PageURL,
		Author:    meta.Author,
		Published: meta.Published,
		ClippedAt: c.now(),
	}

	doc, err := sess.remote.CreateDocument(ctx, outline.DocumentInput{
		Title:            title,
		Text:             preamble.Markdown() + "\n\n" + c.body(log, req),
		CollectionID:     collectionID,
		ParentDocumentID: folderID,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		ClipID:       rc.ID,
		DocumentID:   doc.ID,
		Title:        title,
		URL:          sess.remote.DocumentURL(doc),
		FolderID:     folderID,
		CollectionID: collectionID,
	}, nil
}

// body converts the selection to Markdown, falling back to the plain text when
// there is no HTML or the conversion fails.
func (c *Clipper) body(log logger.Logger, req Request) string {
	if strings.TrimSpace(req.SelectionHTML) == "" {
		return req.SelectionText
	}
	md, err := markdown.Convert(req.SelectionHTML)
	if err != nil {
		log.Warn("selection conversion failed, using plain text", logger.Error(clipperr.Script(err)))
		return req.SelectionText
	}
	if md == "" {
		return req.SelectionText
	}
	return md
}

// pageMeta prefers the values sent with the request over the page's meta tags.
func (c *Clipper) pageMeta(log logger.Logger, req Request) markdown.Meta {
	meta := markdown.Meta{Author: req.Author, Published: req.Published}
	if req.PageHTML == "" || (meta.Author != "" && meta.Published != "") {
		return meta
	}

	found, err := markdown.ExtractMeta(req.PageHTML)
	if err != nil {
		log.Warn("page meta extraction failed", logger.Error(clipperr.Script(err)))
		return meta
	}
	if meta.Author == "" {
		meta.Author = found.Author
	}
	if meta.Published == "" {
		meta.Published = found.Published
	}
	return meta
}

func (c *Clipper) sessionFor(s settings.Settings) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.settings == s {
		return c.session
	}
	remote := c.connect(s)
	c.session = &session{
		settings: s,
		remote:   remote,
		prov:     provision.New(remote, c.cache, s.CollectionName, c.log),
	}
	return c.session
}

// Remote returns the Outline client for the current settings.
func (c *Clipper) Remote(ctx context.Context) (Remote, error) {
	s, err := c.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return c.sessionFor(s).remote, nil
}
