package paste

import (
	"errors"
	"time"

	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/internal/service"
	"bitwise74/paste-api/pkg/snowflake"

	"gorm.io/gorm"
)

// ErrPasteGone means the paste does not exist or was tombstoned just now.
// Callers answer 404 either way, a client must not be able to tell an
// expired paste from one that never existed
var ErrPasteGone = errors.New("paste not found")

// Validate fetches a paste inside tx and enforces the lazy half of expiry:
// a paste past its expiry or out of views is deleted on the spot and
// reported as gone. The caller must commit the transaction even on
// ErrPasteGone so the deletion sticks, and afterwards purge the object
// keys appended to orphans
func Validate(tx *gorm.DB, pasteID snowflake.ID, now time.Time, orphans *[]string) (*model.Paste, error) {
	p, err := model.FetchPaste(tx, pasteID)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, ErrPasteGone
	}

	if p.Tombstoned(now) {
		keys, err := service.PurgePasteRows(tx, pasteID)
		if err != nil {
			return nil, err
		}

		*orphans = append(*orphans, keys...)
		return nil, ErrPasteGone
	}

	return p, nil
}
