package paste

import (
	"errors"
	"net/http"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PasteFetch returns a paste with its documents. Reading counts as a view,
// and a paste found to be expired or out of views is deleted right here
// instead of being served one last time
func PasteFetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	pasteID, err := snowflake.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid paste ID",
			"requestID": requestID,
		})
		return
	}

	var (
		paste     *model.Paste
		documents []model.Document
		orphans   []string
		gone      bool
	)

	now := d.Clock()

	// The tombstone check and the view increment share one transaction so
	// a read racing an expiry can neither serve the paste nor bump views
	// on a row that is about to go away
	err = d.DB.Transaction(func(tx *gorm.DB) error {
		var err error

		paste, err = Validate(tx, pasteID, now, &orphans)
		if err != nil {
			if errors.Is(err, ErrPasteGone) {
				// Commit so the tombstone deletion sticks
				gone = true
				return nil
			}

			return err
		}

		views, err := model.AddPasteView(tx, pasteID)
		if err != nil {
			return err
		}
		paste.Views = views

		documents, err = model.FetchAllDocuments(tx, pasteID)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch paste", zap.String("requestID", requestID), zap.Error(err))
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

	includeContent := c.Query("content") == "true"

	views := make([]DocumentView, len(documents))
	for i := range documents {
		var content *string

		if includeContent {
			data, err := d.S3.FetchDocument(c.Request.Context(), documents[i].StorageKey())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal server error",
					"requestID": requestID,
				})

				zap.L().Error("Failed to fetch document content",
					zap.String("requestID", requestID),
					zap.String("key", documents[i].StorageKey()),
					zap.Error(err),
				)
				return
			}

			s := string(data)
			content = &s
		}

		views[i] = NewDocumentView(&documents[i], content)
	}

	c.JSON(http.StatusOK, NewPasteView(paste, "", views))
}
