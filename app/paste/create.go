package paste

import (
	"net/http"
	"time"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/pkg/security"
	"bitwise74/paste-api/pkg/snowflake"
	"bitwise74/paste-api/pkg/undefined"
	"bitwise74/paste-api/validators"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createDocumentBody struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type createBody struct {
	Expiry    undefined.Option[time.Time] `json:"expiry_timestamp,omitzero"`
	MaxViews  undefined.Option[int64]     `json:"max_views,omitzero"`
	Documents []createDocumentBody        `json:"documents"`
}

// PasteCreate makes a new paste together with its documents and its one
// ownership token. The token is returned here and never again
func PasteCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var body createBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if len(body.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No documents were provided",
			"requestID": requestID,
		})
		return
	}

	if maxCount := viper.GetInt("paste.max_document_count"); len(body.Documents) > maxCount {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Too many documents were provided",
			"requestID": requestID,
		})
		return
	}

	seen := make(map[string]struct{}, len(body.Documents))
	for i := range body.Documents {
		doc := &body.Documents[i]

		if doc.Type == "" {
			doc.Type = validators.DefaultMime
		}

		if validators.ContainsMime(validators.UnsupportedMimes, doc.Type) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid mime type received: " + doc.Type,
				"requestID": requestID,
			})
			return
		}

		if _, dup := seen[doc.Name]; dup {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "One or more documents provided has the same name",
				"requestID": requestID,
			})
			return
		}
		seen[doc.Name] = struct{}{}

		if err := validators.DocumentLimits(doc.Name, int64(len(doc.Content))); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}
	}

	if v, ok := body.MaxViews.Get(); ok && v < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "max_views must be bigger than 0",
			"requestID": requestID,
		})
		return
	}

	now := d.Clock()

	expiry, err := resolveExpiry(body.Expiry, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	pasteID, err := snowflake.Generate()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate paste ID", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	token, err := security.GenerateToken(pasteID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate paste token", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	paste := model.Paste{
		ID:       pasteID,
		Expiry:   expiry,
		MaxViews: body.MaxViews.Ptr(),
	}

	documents := make([]model.Document, len(body.Documents))
	for i, doc := range body.Documents {
		docID, err := snowflake.Generate()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to generate document ID", zap.String("requestID", requestID), zap.Error(err))
			return
		}

		documents[i] = model.Document{
			ID:           docID,
			PasteID:      pasteID,
			DocumentType: doc.Type,
			Name:         doc.Name,
			Size:         int64(len(doc.Content)),
		}
	}

	ctx := c.Request.Context()
	status := 0
	var quotaErr error

	// Metadata is staged first, content is written before the commit.
	// If any object write fails the transaction rolls back and the rows
	// never existed. If the commit itself fails the written objects are
	// orphaned, which is the accepted side of the trade
	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := paste.Insert(tx); err != nil {
			return err
		}

		for i := range documents {
			if err := documents[i].Insert(tx); err != nil {
				return err
			}
		}

		tokenRow := model.PasteToken{PasteID: pasteID, Token: token}
		if err := tokenRow.Insert(tx); err != nil {
			return err
		}

		if code, err := validators.TotalDocumentLimits(tx, pasteID); err != nil {
			status, quotaErr = code, err
			return err
		}

		for i := range documents {
			err := d.S3.PutDocument(ctx, documents[i].StorageKey(), documents[i].DocumentType, []byte(body.Documents[i].Content))
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if status == http.StatusBadRequest {
			c.JSON(status, gin.H{
				"error":     quotaErr.Error(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create paste", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	includeContent := c.Query("content") == "true"

	views := make([]DocumentView, len(documents))
	for i := range documents {
		var content *string
		if includeContent {
			content = &body.Documents[i].Content
		}

		views[i] = NewDocumentView(&documents[i], content)
	}

	c.JSON(http.StatusOK, NewPasteView(&paste, token, views))
}

// resolveExpiry turns the tri-state expiry field into a concrete value.
// Omitted falls back to the configured default, null means never expire
func resolveExpiry(expiry undefined.Option[time.Time], now time.Time) (*time.Time, error) {
	if expiry.IsNull() {
		return nil, nil
	}

	if expiry.IsUndefined() {
		if hours := viper.GetInt("paste.default_expiry_hours"); hours > 0 {
			t := now.Add(time.Duration(hours) * time.Hour)
			return &t, nil
		}

		return nil, nil
	}

	t, _ := expiry.Get()

	return checkExpiryBounds(t, now)
}
