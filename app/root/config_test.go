package root

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	viper.Set("paste.min_document_size", 1)
	viper.Set("paste.max_document_size", 1000)
	viper.Set("paste.min_name_length", 1)
	viper.Set("paste.max_name_length", 50)
	viper.Set("paste.min_document_count", 1)
	viper.Set("paste.max_document_count", 5)
	viper.Set("paste.min_total_size", 1)
	viper.Set("paste.max_total_size", 2000)
	viper.Set("paste.default_expiry_hours", 0)
	viper.Set("paste.max_expiry_hours", 720)

	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/api/config", Config)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view configView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	assert.Nil(t, view.Defaults.ExpiryHours, "a disabled default reads as null")
	assert.Equal(t, int64(1000), view.SizeLimits.MaximumDocumentSize)
	assert.Equal(t, 50, view.SizeLimits.MaximumNameLength)
	assert.Equal(t, 5, view.SizeLimits.MaximumDocumentCount)
	assert.Equal(t, int64(2000), view.SizeLimits.MaximumTotalSize)
	require.NotNil(t, view.SizeLimits.MaximumExpiryHours)
	assert.Equal(t, 720, *view.SizeLimits.MaximumExpiryHours)
}
