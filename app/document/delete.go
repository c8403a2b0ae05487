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

// DocumentDelete removes one document from a paste. The last document of a
// paste cannot be deleted, a paste always has at least one
func DocumentDelete(c *gin.Context, d *internal.Deps) {
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

	now := d.Clock()
	ctx := c.Request.Context()

	var (
		key     string
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

		doc, err := model.FetchDocumentWithPaste(tx, pasteID, documentID)
		if err != nil {
			return err
		}

		if doc == nil {
			status, userErr = http.StatusNotFound, errors.New("Document not found")
			return userErr
		}

		count, err := model.TotalDocumentCount(tx, pasteID)
		if err != nil {
			return err
		}

		if count <= 1 {
			status, userErr = http.StatusBadRequest, errors.New("A paste must have at least one document")
			return userErr
		}

		key = doc.StorageKey()

		if _, err := model.DeleteDocument(tx, documentID); err != nil {
			return err
		}

		p.SetEdited()

		return p.Upsert(tx)
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

		zap.L().Error("Failed to delete document", zap.String("requestID", requestID), zap.Error(err))
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

	service.PurgeObjects(ctx, d.S3, []string{key})

	c.Status(http.StatusNoContent)
}
