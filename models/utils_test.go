package models

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *gorm.DB {
	f, err := ioutil.TempFile("", "studymall-models-test")
	require.NoError(t, err)

	db, err := gorm.Open("sqlite3", f.Name())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		db.Close()
		os.Remove(f.Name())
	})
	return db
}
