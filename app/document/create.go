package document

import (
	"errors"
	"net/http"

	"bitwise74/paste-api/app/paste"
	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"
	"bitwise74/paste-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createBody struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DocumentCreate adds one document to an existing paste
func DocumentCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	pasteID := c.MustGet("pasteID").(snowflake.ID)

	var body createBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if body.Type == "" {
		body.Type = validators.DefaultMime
	}

	if validators.ContainsMime(validators.UnsupportedMimes, body.Type) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid mime type received: " + body.Type,
			"requestID": requestID,
		})
		return
	}

	if err := validators.DocumentLimits(body.Name, int64(len(body.Content))); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	documentID, err := snowflake.Generate()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate document ID", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	doc := model.Document{
		ID:           documentID,
		PasteID:      pasteID,
		DocumentType: body.Type,
		Name:         body.Name,
		Size:         int64(len(body.Content)),
	}

	now := d.Clock()
	ctx := c.Request.Context()

	var (
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

		existing, err := model.FetchAllDocuments(tx, pasteID)
		if err != nil {
			return err
		}

		for i := range existing {
			if existing[i].Name == doc.Name {
				status, userErr = http.StatusBadRequest, errors.New("A document with this name already exists")
				return userErr
			}
		}

		if err := doc.Insert(tx); err != nil {
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

		return d.S3.PutDocument(ctx, doc.StorageKey(), doc.DocumentType, []byte(body.Content))
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

		zap.L().Error("Failed to create document", zap.String("requestID", requestID), zap.Error(err))
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

	c.JSON(http.StatusOK, paste.NewDocumentView(&doc, nil))
}
