// Package db contains the database connection setup
package db

import (
	"fmt"
	"os"

	"bitwise74/paste-api/internal/model"
	"bitwise74/paste-api/pkg/util"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New opens the metadata store configured under db.* and migrates the
// paste tables
func New() (*gorm.DB, error) {
	var (
		conn *gorm.DB
		err  error
	)

	switch viper.GetString("db.type") {
	case "postgres":
		conn, err = gorm.Open(postgres.Open(viper.GetString("db.dsn")))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres, %w", err)
		}
	default:
		dsn := viper.GetString("db.dsn")

		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(dsn); err != nil {
				if err == os.ErrNotExist {
					return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
				}
			}
		}

		conn, err = gorm.Open(sqlite.Open(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite database, %w", err)
		}
	}

	err = conn.AutoMigrate(model.Paste{}, model.Document{}, model.PasteToken{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return conn, nil
}
