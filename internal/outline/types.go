package outline

import "time"

// Document is the subset of an Outline document the clipper reads.
type Document struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	URL              string     `json:"url"`
	Text             string     `json:"text,omitempty"`
	CollectionID     string     `json:"collectionId,omitempty"`
	ParentDocumentID string     `json:"parentDocumentId,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
	ArchivedAt       *time.Time `json:"archivedAt,omitempty"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty"`
}

// Gone reports whether the document was deleted or archived on the server.
func (d *Document) Gone() bool {
	return d.DeletedAt != nil || d.ArchivedAt != nil
}

// DocumentInput is the payload of documents.create.
type DocumentInput struct {
	Title        string
	Text         string
	CollectionID string
	// Publish defaults to true; set Draft to create an unpublished document.
	Draft bool
	// ParentDocumentID is omitted from the request when blank.
	ParentDocumentID string
}

type collectionCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Permission  string `json:"permission"`
	Color       string `json:"color"`
	Private     bool   `json:"private"`
}

type documentCreateRequest struct {
	Title            string `json:"title"`
	Text             string `json:"text"`
	CollectionID     string `json:"collectionId"`
	Publish          bool   `json:"publish"`
	ParentDocumentID string `json:"parentDocumentId,omitempty"`
}

type documentInfoRequest struct {
	ID string `json:"id"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type collection struct {
	ID string `json:"id"`
}
