// Package paste contains the handlers for the paste endpoints
package paste

import (
	"time"

	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/pkg/snowflake"
)

// DocumentView is a document row plus, when the client asked for it, the
// content fetched from the object store
type DocumentView struct {
	ID           snowflake.ID `json:"id"`
	PasteID      snowflake.ID `json:"paste_id"`
	DocumentType string       `json:"type"`
	Name         string       `json:"name"`
	Size         int64        `json:"size"`
	Content      *string      `json:"content,omitempty"`
}

// PasteView is the response shape for every paste endpoint. Token is only
// ever populated by create, it cannot be recovered afterwards
type PasteView struct {
	ID        snowflake.ID   `json:"id"`
	Token     string         `json:"token,omitempty"`
	Edited    bool           `json:"edited"`
	Expiry    *time.Time     `json:"expiry_timestamp"`
	Views     int64          `json:"views"`
	MaxViews  *int64         `json:"max_views"`
	Documents []DocumentView `json:"documents"`
}

func NewDocumentView(d *model.Document, content *string) DocumentView {
	return DocumentView{
		ID:           d.ID,
		PasteID:      d.PasteID,
		DocumentType: d.DocumentType,
		Name:         d.Name,
		Size:         d.Size,
		Content:      content,
	}
}

func NewPasteView(p *model.Paste, token string, documents []DocumentView) PasteView {
	return PasteView{
		ID:        p.ID,
		Token:     token,
		Edited:    p.Edited,
		Expiry:    p.Expiry,
		Views:     p.Views,
		MaxViews:  p.MaxViews,
		Documents: documents,
	}
}
