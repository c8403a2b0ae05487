package model

import (
	"errors"
	"fmt"

	"bitwise74/paste-api/pkg/snowflake"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Document struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	PasteID      snowflake.ID `gorm:"index" json:"paste_id"`
	DocumentType string       `json:"type"`
	Name         string       `json:"name"`
	Size         int64        `json:"size"`
}

// StorageKey builds the object store key for this document. The metadata row
// and the stored object must always agree on this path, so it is derived
// here and nowhere else
func (d *Document) StorageKey() string {
	return fmt.Sprintf("%s/%s/%s", d.PasteID, d.ID, d.Name)
}

func (d *Document) SetDocumentType(documentType string) {
	d.DocumentType = documentType
}

func (d *Document) SetName(name string) {
	d.Name = name
}

func (d *Document) SetSize(size int64) {
	d.Size = size
}

// FetchDocument returns the document with the given ID, or nil if there is none
func FetchDocument(db *gorm.DB, id snowflake.ID) (*Document, error) {
	var d Document

	err := db.Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &d, nil
}

// FetchDocumentWithPaste returns the document only if it belongs to the
// given paste
func FetchDocumentWithPaste(db *gorm.DB, pasteID, id snowflake.ID) (*Document, error) {
	var d Document

	err := db.Where("paste_id = ? AND id = ?", pasteID, id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &d, nil
}

func FetchAllDocuments(db *gorm.DB, pasteID snowflake.ID) ([]Document, error) {
	var documents []Document

	err := db.Where("paste_id = ?", pasteID).Find(&documents).Error
	if err != nil {
		return nil, err
	}

	return documents, nil
}

// TotalDocumentCount counts the documents attached to a paste. Run inside
// the mutating transaction so in-flight writes are observed
func TotalDocumentCount(db *gorm.DB, pasteID snowflake.ID) (int64, error) {
	var count int64

	err := db.
		Model(Document{}).
		Where("paste_id = ?", pasteID).
		Count(&count).
		Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// TotalDocumentSize sums the byte sizes of all documents attached to a paste
func TotalDocumentSize(db *gorm.DB, pasteID snowflake.ID) (int64, error) {
	var size *int64

	err := db.
		Model(Document{}).
		Where("paste_id = ?", pasteID).
		Select("SUM(size)").
		Scan(&size).
		Error
	if err != nil {
		return 0, err
	}

	if size == nil {
		return 0, nil
	}

	return *size, nil
}

func (d *Document) Insert(db *gorm.DB) error {
	return db.Create(d).Error
}

// Upsert inserts the document, or updates the mutable columns when a row
// with the same ID already exists
func (d *Document) Upsert(db *gorm.DB) error {
	return db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document_type", "name", "size"}),
		}).
		Create(d).
		Error
}

// DeleteDocument removes the document row. Reports false when the row was
// already gone
func DeleteDocument(db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.Where("id = ?", id).Delete(Document{})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}
