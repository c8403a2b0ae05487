// Package service contains background tasks and business helpers shared
// between handlers
package service

import (
	"context"

	"bitwise74/paste-api/internal"
	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/pkg/snowflake"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgePasteRows deletes everything a paste owns from the metadata store:
// its documents, its token and finally the paste row itself. Returns the
// object store keys whose content should be deleted once the transaction
// commits. The row side goes first on purpose: if the later object deletes
// fail we leak unreferenced bytes, which is recoverable, whereas committed
// metadata pointing at deleted content is not
func PurgePasteRows(tx *gorm.DB, pasteID snowflake.ID) ([]string, error) {
	documents, err := model.FetchAllDocuments(tx, pasteID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(documents))
	for i := range documents {
		keys = append(keys, documents[i].StorageKey())
	}

	err = tx.Where("paste_id = ?", pasteID).Delete(model.Document{}).Error
	if err != nil {
		return nil, err
	}

	if err := model.DeleteToken(tx, pasteID); err != nil {
		return nil, err
	}

	// A concurrent reader may have beaten us to it. Zero rows deleted is
	// still a success
	if _, err := model.DeletePaste(tx, pasteID); err != nil {
		return nil, err
	}

	return keys, nil
}

// PurgeObjects deletes document content for the given keys. Failures are
// logged and skipped, orphaned objects are reclaimed by an out-of-band
// reconciliation job
func PurgeObjects(ctx context.Context, store internal.ObjectStore, keys []string) {
	for _, key := range keys {
		if err := store.DeleteDocument(ctx, key); err != nil {
			zap.L().Warn("Failed to delete document content",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

// DestroyPaste removes a paste completely: metadata rows in one
// transaction, then the content behind them
func DestroyPaste(ctx context.Context, db *gorm.DB, store internal.ObjectStore, pasteID snowflake.ID) error {
	var keys []string

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error

		keys, err = PurgePasteRows(tx, pasteID)
		return err
	})
	if err != nil {
		return err
	}

	PurgeObjects(ctx, store, keys)
	return nil
}
