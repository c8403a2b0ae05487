// Package validators contains the quota checks run before any paste
// mutation commits. Nothing in here mutates state
package validators

import (
	"fmt"
	"net/http"
	"strings"

	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/pkg/snowflake"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// UnsupportedMimes are document types that will be declined
var UnsupportedMimes = []string{"image/*", "video/*", "audio/*", "font/*", "application/pdf"}

const DefaultMime = "text/plain"

// Error messages embed the document name. Cap how much of it we echo back
// so a hostile name can't inflate the error payload
const maxNameInError = 50

func truncateName(name string) string {
	if len(name) > maxNameInError {
		return name[:maxNameInError-3] + "..."
	}

	return name
}

// DocumentLimits checks a single document's name length and byte size
// against the configured bounds
func DocumentLimits(name string, size int64) error {
	if size < viper.GetInt64("paste.min_document_size") {
		return fmt.Errorf("Document `%s` is too small", truncateName(name))
	}

	if size > viper.GetInt64("paste.max_document_size") {
		return fmt.Errorf("Document `%s` is too large", truncateName(name))
	}

	if len(name) < viper.GetInt("paste.min_name_length") {
		return fmt.Errorf("Document name `%s` is too short", truncateName(name))
	}

	if len(name) > viper.GetInt("paste.max_name_length") {
		return fmt.Errorf("Document name `%s` is too long", truncateName(name))
	}

	return nil
}

// TotalDocumentLimits checks the aggregate document count and size of a
// paste. Must run on the mutating transaction so staged writes count.
// Violations are reported in a fixed order: count too low, count too high,
// size too low, size too high
func TotalDocumentLimits(tx *gorm.DB, pasteID snowflake.ID) (int, error) {
	count, err := model.TotalDocumentCount(tx, pasteID)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	if minCount := viper.GetInt64("paste.min_document_count"); count < minCount {
		return http.StatusBadRequest, fmt.Errorf("Not enough documents were provided. Expected: %d, Received: %d", minCount, count)
	}

	if maxCount := viper.GetInt64("paste.max_document_count"); count > maxCount {
		return http.StatusBadRequest, fmt.Errorf("Too many documents were provided. Expected: %d, Received: %d", maxCount, count)
	}

	size, err := model.TotalDocumentSize(tx, pasteID)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	if minSize := viper.GetInt64("paste.min_total_size"); size < minSize {
		return http.StatusBadRequest, fmt.Errorf("The total document size is below the minimum of %d bytes", minSize)
	}

	if maxSize := viper.GetInt64("paste.max_total_size"); size > maxSize {
		return http.StatusBadRequest, fmt.Errorf("The total document size exceeds the maximum of %d bytes", maxSize)
	}

	return 0, nil
}

// ContainsMime checks if value matches any entry in mimes. An entry ending
// in /* matches every subtype of that type
func ContainsMime(mimes []string, value string) bool {
	mainType, _, ok := strings.Cut(value, "/")
	if !ok {
		return false
	}

	for _, mime := range mimes {
		if mime == value {
			return true
		}

		if prefix, found := strings.CutSuffix(mime, "/*"); found && prefix == mainType {
			return true
		}
	}

	return false
}
