// Package outline is a minimal client for the Outline knowledge base API: the three
// RPC-style endpoints the clipper needs, each a JSON POST under {base}/api.
package outline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/metrics"
	"github.com/MrSnakeDoc/clip/internal/transport"
	"github.com/MrSnakeDoc/clip/internal/utils"
	"github.com/MrSnakeDoc/clip/internal/version"
)

const (
	methodCollectionsCreate = "collections.create"
	methodDocumentsCreate   = "documents.create"
	methodDocumentsInfo     = "documents.info"

	// maxErrorBody bounds how much of an error response ends up in messages.
	maxErrorBody = 4 << 10
)

// Client talks to one Outline instance. The endpoint is fixed for its lifetime.
type Client struct {
	baseURL   string
	token     string
	transport *transport.Client
	log       logger.Logger
}

// New returns a client for baseURL. Trailing slashes are stripped.
func New(baseURL, token string, tr *transport.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:   NormalizeBaseURL(baseURL),
		token:     token,
		transport: tr,
		log:       log,
	}
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateCollection creates a collection and returns its ID.
func (c *Client) CreateCollection(ctx context.Context, name string) (string, error) {
	body := collectionCreateRequest{
		Name:        name,
		Description: "",
		Permission:  "read",
		Color:       "#123123",
		Private:     false,
	}

	var out envelope[collection]
	if err := c.call(ctx, methodCollectionsCreate, body, "Collection creation failed", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("%s: response carried no collection id", methodCollectionsCreate)
	}
	return out.Data.ID, nil
}

// CreateDocument creates a document. The parent is omitted when blank so the
// document lands at the collection root.
func (c *Client) CreateDocument(ctx context.Context, in DocumentInput) (*Document, error) {
	body := documentCreateRequest{
		Title:        in.Title,
		Text:         in.Text,
		CollectionID: in.CollectionID,
		Publish:      !in.Draft,
	}
	if strings.TrimSpace(in.ParentDocumentID) != "" {
		body.ParentDocumentID = in.ParentDocumentID
	}

	c.log.Debug("creating document",
		logger.String("title", in.Title),
		logger.String("collection_id", in.CollectionID),
		logger.String("parent_document_id", body.ParentDocumentID))

	var out envelope[Document]
	if err := c.call(ctx, methodDocumentsCreate, body, "Document creation failed", &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("%s: response carried no document id", methodDocumentsCreate)
	}
	return &out.Data, nil
}

// GetDocument fetches a document for a liveness probe. Any non-OK response
// yields (nil, nil): the caller treats it as absent. Transport failures are
// still returned.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	start := time.Now()
	resp, err := c.post(ctx, methodDocumentsInfo, documentInfoRequest{ID: id})
	if err != nil {
		metrics.RecordOutlineCall(methodDocumentsInfo, clipperr.KindOf(err).String(), time.Since(start))
		return nil, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordOutlineCall(methodDocumentsInfo, "absent", time.Since(start))
		c.log.Debug("document probe returned non-OK",
			logger.String("document_id", id),
			logger.Int("status", resp.StatusCode))
		return nil, nil
	}

	var out envelope[Document]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.RecordOutlineCall(methodDocumentsInfo, "decode_error", time.Since(start))
		return nil, fmt.Errorf("failed to decode %s response: %w", methodDocumentsInfo, err)
	}
	metrics.RecordOutlineCall(methodDocumentsInfo, "ok", time.Since(start))
	return &out.Data, nil
}

// DocumentURL returns the browser URL of doc. Outline answers with a path
// relative to the instance; absolute URLs are kept, and a missing URL falls
// back to /doc/<id>.
func (c *Client) DocumentURL(doc *Document) string {
	switch {
	case doc == nil:
		return ""
	case doc.URL == "":
		return c.baseURL + "/doc/" + doc.ID
	case strings.HasPrefix(doc.URL, "/"):
		return c.baseURL + doc.URL
	default:
		return doc.URL
	}
}

// call posts body and decodes an OK response into out. Non-OK responses become
// RemoteAPI errors.
func (c *Client) call(ctx context.Context, method string, body any, defaultErr string, out any) error {
	start := time.Now()
	resp, err := c.post(ctx, method, body)
	if err != nil {
		metrics.RecordOutlineCall(method, clipperr.KindOf(err).String(), time.Since(start))
		return err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordOutlineCall(method, "remote_error", time.Since(start))
		msg := parseAPIError(resp, defaultErr)
		c.log.Warn("outline api returned an error",
			logger.String("method", method),
			logger.Int("status", resp.StatusCode),
			logger.String("message", msg))
		return clipperr.RemoteAPI(resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordOutlineCall(method, "decode_error", time.Since(start))
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	metrics.RecordOutlineCall(method, "ok", time.Since(start))
	return nil
}

func (c *Client) post(ctx context.Context, method string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}

	endpoint := c.baseURL + "/api/" + method
	c.log.Debug("sending outline request", logger.String("endpoint", endpoint))

	return c.transport.Retry(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: c.headers(),
		Body:   payload,
	})
}

func (c *Client) headers() http.Header {
	h := make(http.Header, 4)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("User-Agent", version.UserAgent())
	return h
}

// parseAPIError renders "Error (Status: N) - detail". The detail is the compacted
// JSON body, the plain-text body, or defaultText when neither can be read.
func parseAPIError(resp *http.Response, defaultText string) string {
	prefix := fmt.Sprintf("Error (Status: %d)", resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return prefix + " - " + defaultText
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return prefix + " - " + defaultText
		}
		return prefix + " - " + buf.String()
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return prefix + " - " + text
	}
	return prefix + " - " + defaultText
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json"
}
