package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

type defaultsView struct {
	ExpiryHours *int `json:"expiry_hours"`
}

type sizeLimitsView struct {
	MinimumDocumentSize  int64 `json:"minimum_document_size"`
	MaximumDocumentSize  int64 `json:"maximum_document_size"`
	MinimumNameLength    int   `json:"minimum_name_length"`
	MaximumNameLength    int   `json:"maximum_name_length"`
	MinimumDocumentCount int   `json:"minimum_document_count"`
	MaximumDocumentCount int   `json:"maximum_document_count"`
	MinimumTotalSize     int64 `json:"minimum_total_size"`
	MaximumTotalSize     int64 `json:"maximum_total_size"`
	MaximumExpiryHours   *int  `json:"maximum_expiry_hours"`
}

type configView struct {
	Defaults   defaultsView   `json:"defaults"`
	SizeLimits sizeLimitsView `json:"size_limits"`
}

// Config exposes the paste limits so clients can validate a paste before
// posting it. A disabled knob (0) reads as null
func Config(c *gin.Context) {
	hoursOrNil := func(key string) *int {
		if v := viper.GetInt(key); v > 0 {
			return &v
		}

		return nil
	}

	c.JSON(http.StatusOK, configView{
		Defaults: defaultsView{
			ExpiryHours: hoursOrNil("paste.default_expiry_hours"),
		},
		SizeLimits: sizeLimitsView{
			MinimumDocumentSize:  viper.GetInt64("paste.min_document_size"),
			MaximumDocumentSize:  viper.GetInt64("paste.max_document_size"),
			MinimumNameLength:    viper.GetInt("paste.min_name_length"),
			MaximumNameLength:    viper.GetInt("paste.max_name_length"),
			MinimumDocumentCount: viper.GetInt("paste.min_document_count"),
			MaximumDocumentCount: viper.GetInt("paste.max_document_count"),
			MinimumTotalSize:     viper.GetInt64("paste.min_total_size"),
			MaximumTotalSize:     viper.GetInt64("paste.max_total_size"),
			MaximumExpiryHours:   hoursOrNil("paste.max_expiry_hours"),
		},
	})
}
