package paste

import (
	"net/http"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PasteDelete removes a paste, its documents, its token and its stored
// content. Rows go first, objects after the commit, so a half-done delete
// leaves orphaned bytes rather than metadata pointing at nothing
func PasteDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	pasteID := c.MustGet("pasteID").(snowflake.ID)

	var (
		keys  []string
		found bool
	)

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		paste, err := model.FetchPaste(tx, pasteID)
		if err != nil {
			return err
		}

		if paste == nil {
			return nil
		}

		found = true

		keys, err = service.PurgePasteRows(tx, pasteID)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete paste", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Paste not found",
			"requestID": requestID,
		})
		return
	}

	service.PurgeObjects(c.Request.Context(), d.S3, keys)

	c.Status(http.StatusNoContent)
}
