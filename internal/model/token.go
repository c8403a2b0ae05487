package model

import (
	"errors"

	"bitwise74/paste-api/pkg/snowflake"

	"gorm.io/gorm"
)

// PasteToken is the ownership credential minted once at paste creation.
// One token per paste, never re-issued, authorizes only its own paste
type PasteToken struct {
	PasteID snowflake.ID `gorm:"primaryKey" json:"paste_id"`
	Token   string       `gorm:"uniqueIndex" json:"-"`
}

// FetchToken resolves a bearer credential to its row by exact match, or nil
// if the credential is unknown
func FetchToken(db *gorm.DB, token string) (*PasteToken, error) {
	var t PasteToken

	err := db.Where("token = ?", token).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &t, nil
}

func (t *PasteToken) Insert(db *gorm.DB) error {
	return db.Create(t).Error
}

// DeleteToken removes the token attached to a paste
func DeleteToken(db *gorm.DB, pasteID snowflake.ID) error {
	return db.Where("paste_id = ?", pasteID).Delete(PasteToken{}).Error
}
