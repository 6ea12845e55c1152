package models

import (
	// supported database drivers; cloudsql covers hosted MySQL behind
	// the Cloud SQL proxy
	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/studymall/studymall/conf"
)

// Connect opens the configured storage engine and optionally runs the
// schema migrations.
func Connect(config *conf.Configuration) (*gorm.DB, error) {
	db, err := gorm.Open(config.DB.Driver, config.DB.ConnURL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}

	if err := db.DB().Ping(); err != nil {
		return nil, errors.Wrap(err, "checking database connection")
	}

	if config.DB.Automigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate runs the gorm auto-migrations for every model.
func Migrate(db *gorm.DB) error {
	db = db.AutoMigrate(
		&Product{},
		&Order{},
		&LineItem{},
		&Purchase{},
		&User{},
		&Session{},
		&EmailVerificationCode{},
	)
	return errors.Wrap(db.Error, "migrating tables")
}
