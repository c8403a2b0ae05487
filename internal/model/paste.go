// Package model defines database models
package model

import (
	"errors"
	"time"

	"bitwise74/paste-api/pkg/snowflake"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Paste struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	Edited   bool         `json:"edited"`
	Expiry   *time.Time   `gorm:"index" json:"expiry_timestamp"`
	Views    int64        `json:"views"`
	MaxViews *int64       `json:"max_views"`

	Documents []Document   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tokens    []PasteToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// SetEdited marks the paste as modified. Monotonic, nothing ever clears it
func (p *Paste) SetEdited() {
	p.Edited = true
}

func (p *Paste) SetExpiry(expiry *time.Time) {
	p.Expiry = expiry
}

func (p *Paste) SetMaxViews(maxViews *int64) {
	p.MaxViews = maxViews
}

// Tombstoned reports whether the paste must no longer be served: either its
// expiry has passed or serving one more read would exceed the view limit.
// Whoever observes this first is responsible for deleting the paste
func (p *Paste) Tombstoned(now time.Time) bool {
	if p.Expiry != nil && p.Expiry.Before(now) {
		return true
	}

	if p.MaxViews != nil && p.Views+1 > *p.MaxViews {
		return true
	}

	return false
}

// FetchPaste returns the paste with the given ID, or nil if there is none
func FetchPaste(db *gorm.DB, id snowflake.ID) (*Paste, error) {
	var p Paste

	err := db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &p, nil
}

// FetchPastesBetween returns all pastes whose expiry falls in [start, end],
// both ends inclusive, ordered by expiry ascending. This is the primitive
// the background sweep is built on
func FetchPastesBetween(db *gorm.DB, start, end time.Time) ([]Paste, error) {
	var pastes []Paste

	err := db.
		Where("expiry >= ? AND expiry <= ?", start, end).
		Order("expiry ASC").
		Find(&pastes).
		Error
	if err != nil {
		return nil, err
	}

	return pastes, nil
}

func (p *Paste) Insert(db *gorm.DB) error {
	return db.Create(p).Error
}

// Upsert inserts the paste, or updates the mutable columns when a row with
// the same ID already exists. The view counter is deliberately not among
// them: views only ever move through AddPasteView, writing back a snapshot
// here would undo increments committed by concurrent reads
func (p *Paste) Upsert(db *gorm.DB) error {
	return db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"edited", "expiry", "max_views"}),
		}).
		Create(p).
		Error
}

// AddPasteView increments the view counter by one and returns the new count.
// Must run inside the same transaction as the tombstone check so a read
// racing a concurrent expiry never counts
func AddPasteView(db *gorm.DB, id snowflake.ID) (int64, error) {
	err := db.
		Model(Paste{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).
		Error
	if err != nil {
		return 0, err
	}

	var views int64

	err = db.
		Model(Paste{}).
		Where("id = ?", id).
		Select("views").
		First(&views).
		Error
	if err != nil {
		return 0, err
	}

	return views, nil
}

// DeletePaste removes the paste row. Reports false when the row was already
// gone, which callers treat as success so concurrent deletes stay idempotent
func DeletePaste(db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.Where("id = ?", id).Delete(Paste{})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}
