package paste

import (
	"errors"
	"net/http"
	"strings"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxBulkPastes = 50

// PasteFetchBulk returns several pastes at once, without document content
// and without counting views. Any unknown or tombstoned ID fails the whole
// request, partial results are never returned
func PasteFetchBulk(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	idsParam := c.Query("ids")
	if idsParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No paste IDs were provided",
			"requestID": requestID,
		})
		return
	}

	parts := strings.Split(idsParam, ",")
	if len(parts) > maxBulkPastes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Too many paste IDs were provided",
			"requestID": requestID,
		})
		return
	}

	ids := make([]snowflake.ID, len(parts))
	for i, part := range parts {
		id, err := snowflake.Parse(part)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid paste ID",
				"requestID": requestID,
			})
			return
		}

		ids[i] = id
	}

	now := d.Clock()

	var (
		views   []PasteView
		orphans []string
		gone    bool
	)

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			p, err := Validate(tx, id, now, &orphans)
			if err != nil {
				if errors.Is(err, ErrPasteGone) {
					gone = true
					return nil
				}

				return err
			}

			documents, err := model.FetchAllDocuments(tx, id)
			if err != nil {
				return err
			}

			docViews := make([]DocumentView, len(documents))
			for i := range documents {
				docViews[i] = NewDocumentView(&documents[i], nil)
			}

			views = append(views, NewPasteView(p, "", docViews))
		}

		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch pastes", zap.String("requestID", requestID), zap.Error(err))
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

	c.JSON(http.StatusOK, views)
}
