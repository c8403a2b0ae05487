package document

import (
	"errors"
	"net/http"

	"bitwise74/paste-api/app/paste"
	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentFetch returns a single document of a paste. Reading a document
// counts as a view against the whole paste, same as reading the paste itself
func DocumentFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	pasteID, err := snowflake.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid paste ID",
			"requestID": requestID,
		})
		return
	}

	documentID, err := snowflake.Parse(c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid document ID",
			"requestID": requestID,
		})
		return
	}

	var (
		doc     *model.Document
		orphans []string
		gone    bool
	)

	now := d.Clock()

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		_, err := paste.Validate(tx, pasteID, now, &orphans)
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
			return nil
		}

		_, err = model.AddPasteView(tx, pasteID)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch document", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	if gone {
		service.PurgeObjects(c.Request.Context(), d.S3, orphans)

		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Paste not found",
			"requestID": requestID,
		})
		return
	}

	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Document not found",
			"requestID": requestID,
		})
		return
	}

	var content *string

	if c.Query("content") == "true" {
		data, err := d.S3.FetchDocument(c.Request.Context(), doc.StorageKey())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to fetch document content",
				zap.String("requestID", requestID),
				zap.String("key", doc.StorageKey()),
				zap.Error(err),
			)
			return
		}

		s := string(data)
		content = &s
	}

	c.JSON(http.StatusOK, paste.NewDocumentView(doc, content))
}
