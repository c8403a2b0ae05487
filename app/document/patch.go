package document

import (
	"errors"
	"net/http"

	"bitwise74/paste-api/app/paste"
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

type patchBody struct {
	Type    undefined.Value[string] `json:"type,omitzero"`
	Name    undefined.Value[string] `json:"name,omitzero"`
	Content undefined.Value[string] `json:"content,omitzero"`
}

// DocumentPatch updates type, name or content of one document. Absent
// fields are left alone
func DocumentPatch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	pasteID := c.MustGet("pasteID").(snowflake.ID)

	documentID, err := snowflake.Parse(c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid document ID",
			"requestID": requestID,
		})
		return
	}

	var body patchBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	now := d.Clock()
	ctx := c.Request.Context()

	var (
		doc     *model.Document
		orphans []string
		gone    bool
		status  int
		userErr error
	)

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		p, err := paste.Validate(tx, pasteID, now, &orphans)
		if err != nil {
			if errors.Is(err, paste.ErrPasteGone) {
				gone = true
				return nil
			}

			return err
		}

		doc, err = model.FetchDocumentWithPaste(tx, pasteID, documentID)
		if err != nil {
			return err
		}

		if doc == nil {
			status, userErr = http.StatusNotFound, errors.New("Document not found")
			return userErr
		}

		oldKey := doc.StorageKey()

		if t, ok := body.Type.Get(); ok {
			if validators.ContainsMime(validators.UnsupportedMimes, t) {
				status, userErr = http.StatusBadRequest, errors.New("Invalid mime type received: "+t)
				return userErr
			}

			doc.SetDocumentType(t)
		}

		if name, ok := body.Name.Get(); ok {
			doc.SetName(name)
		}

		content, contentSet := body.Content.Get()
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

		p.SetEdited()

		if err := p.Upsert(tx); err != nil {
			return err
		}

		if code, err := validators.TotalDocumentLimits(tx, pasteID); err != nil {
			status, userErr = code, err
			return err
		}

		newKey := doc.StorageKey()

		data := []byte(content)

		if !contentSet {
			if newKey == oldKey {
				return nil
			}

			// Name-only change, move the existing bytes to the new path
			data, err = d.S3.FetchDocument(ctx, oldKey)
			if err != nil {
				return err
			}
		}

		if err := d.S3.DeleteDocument(ctx, oldKey); err != nil {
			return err
		}

		return d.S3.PutDocument(ctx, newKey, doc.DocumentType, data)
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

		zap.L().Error("Failed to patch document", zap.String("requestID", requestID), zap.Error(err))
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

	c.JSON(http.StatusOK, paste.NewDocumentView(doc, nil))
}
