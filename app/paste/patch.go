package paste

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"
	"bitwise74/paste-api/pkg/undefined"
	"bitwise74/paste-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type patchDocumentBody struct {
	ID      snowflake.ID            `json:"id"`
	Type    undefined.Value[string] `json:"type,omitzero"`
	Name    undefined.Value[string] `json:"name,omitzero"`
	Content undefined.Value[string] `json:"content,omitzero"`
}

type patchBody struct {
	Expiry    undefined.Option[time.Time]          `json:"expiry_timestamp,omitzero"`
	MaxViews  undefined.Option[int64]              `json:"max_views,omitzero"`
	Documents undefined.Value[[]patchDocumentBody] `json:"documents,omitzero"`
}

// objectOp is one staged content rewrite: drop the old path, put the new
// bytes at the (possibly identical) new path
type objectOp struct {
	deleteKey   string
	putKey      string
	contentType string
	content     []byte
}

// PastePatch applies a partial update. Every field is tri-state: absent
// means leave alone, null means clear, a value means replace. Documents are
// matched by ID and must already exist, PATCH never creates them
func PastePatch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	pasteID := c.MustGet("pasteID").(snowflake.ID)

	var body patchBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if docs, ok := body.Documents.Get(); ok {
		seen := make(map[snowflake.ID]struct{}, len(docs))

		for _, doc := range docs {
			if _, dup := seen[doc.ID]; dup {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "One or more documents provided has the same ID",
					"requestID": requestID,
				})
				return
			}

			seen[doc.ID] = struct{}{}
		}
	}

	now := d.Clock()
	ctx := c.Request.Context()

	var (
		paste     *model.Paste
		documents []model.Document
		orphans   []string
		gone      bool
		status    int
		userErr   error
	)

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		var err error

		paste, err = Validate(tx, pasteID, now, &orphans)
		if err != nil {
			if errors.Is(err, ErrPasteGone) {
				gone = true
				return nil
			}

			return err
		}

		mutated := false

		if !body.Expiry.IsUndefined() {
			if t, ok := body.Expiry.Get(); ok {
				expiry, err := checkExpiryBounds(t, now)
				if err != nil {
					status, userErr = http.StatusBadRequest, err
					return err
				}

				paste.SetExpiry(expiry)
			} else {
				paste.SetExpiry(nil)
			}

			mutated = true
		}

		if !body.MaxViews.IsUndefined() {
			if v, ok := body.MaxViews.Get(); ok {
				if v < 1 {
					status, userErr = http.StatusBadRequest, errors.New("max_views must be bigger than 0")
					return userErr
				}

				paste.SetMaxViews(&v)
			} else {
				paste.SetMaxViews(nil)
			}

			mutated = true
		}

		var ops []objectOp

		if docs, ok := body.Documents.Get(); ok {
			for _, patch := range docs {
				doc, err := model.FetchDocumentWithPaste(tx, pasteID, patch.ID)
				if err != nil {
					return err
				}

				if doc == nil {
					status = http.StatusNotFound
					userErr = fmt.Errorf("Document %s not found", patch.ID)
					return userErr
				}

				// An entry that names a document but changes nothing is
				// not an edit
				if patch.Type.IsUndefined() && patch.Name.IsUndefined() && patch.Content.IsUndefined() {
					continue
				}

				oldKey := doc.StorageKey()

				if t, ok := patch.Type.Get(); ok {
					if validators.ContainsMime(validators.UnsupportedMimes, t) {
						status, userErr = http.StatusBadRequest, fmt.Errorf("Invalid mime type received: %s", t)
						return userErr
					}

					doc.SetDocumentType(t)
				}

				if name, ok := patch.Name.Get(); ok {
					doc.SetName(name)
				}

				content, contentSet := patch.Content.Get()
				if contentSet {
					doc.SetSize(int64(len(content)))
				}

				if err := validators.DocumentLimits(doc.Name, doc.Size); err != nil {
					status, userErr = http.StatusBadRequest, err
					return err
				}

				if err := doc.Upsert(tx); err != nil {
					return err
				}

				newKey := doc.StorageKey()

				switch {
				case contentSet:
					ops = append(ops, objectOp{
						deleteKey:   oldKey,
						putKey:      newKey,
						contentType: doc.DocumentType,
						content:     []byte(content),
					})
				case newKey != oldKey:
					// The name moved but the bytes didn't. Rehome the
					// existing content under the new path
					data, err := d.S3.FetchDocument(ctx, oldKey)
					if err != nil {
						return err
					}

					ops = append(ops, objectOp{
						deleteKey:   oldKey,
						putKey:      newKey,
						contentType: doc.DocumentType,
						content:     data,
					})
				}

				mutated = true
			}
		}

		if !mutated {
			documents, err = model.FetchAllDocuments(tx, pasteID)
			return err
		}

		paste.SetEdited()

		if err := paste.Upsert(tx); err != nil {
			return err
		}

		if code, err := validators.TotalDocumentLimits(tx, pasteID); err != nil {
			status, userErr = code, err
			return err
		}

		// Content writes happen last, with the metadata still uncommitted.
		// Any failure here rolls the rows back so committed metadata never
		// points at content that was not written
		for _, op := range ops {
			if err := d.S3.DeleteDocument(ctx, op.deleteKey); err != nil {
				return err
			}

			if err := d.S3.PutDocument(ctx, op.putKey, op.contentType, op.content); err != nil {
				return err
			}
		}

		documents, err = model.FetchAllDocuments(tx, pasteID)
		return err
	})
	if err != nil {
		if status != 0 {
			c.JSON(status, gin.H{
				"error":     userErr.Error(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to patch paste", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	if gone {
		service.PurgeObjects(ctx, d.S3, orphans)

		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Paste not found",
			"requestID": requestID,
		})
		return
	}

	docViews := make([]DocumentView, len(documents))
	for i := range documents {
		docViews[i] = NewDocumentView(&documents[i], nil)
	}

	c.JSON(http.StatusOK, NewPasteView(paste, "", docViews))
}
