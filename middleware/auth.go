package middleware

import (
	"net/http"
	"strings"

	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewPasteAuthMiddleware guards the mutating paste routes. The bearer token
// must match the stored token for the paste in the URL byte for byte. The
// IDs embedded in the token itself are never trusted, only the stored row
// decides
func NewPasteAuthMiddleware(d *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		pasteID, err := snowflake.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid paste ID",
				"requestID": requestID,
			})
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Missing authorization token",
				"requestID": requestID,
			})
			return
		}

		row, err := model.FetchToken(d, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to look up paste token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if row == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})
			return
		}

		if row.PasteID != pasteID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Authorization token does not belong to this paste",
				"requestID": requestID,
			})
			return
		}

		c.Set("pasteID", pasteID)
		c.Next()
	}
}
