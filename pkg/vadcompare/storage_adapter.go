package vadcompare

import (
	"github.com/himanishpuri/vadcompare/pkg/vadcompare/storage"
)

// NewSQLiteHistory opens (creating if needed) a SQLite run history at dbPath.
func NewSQLiteHistory(dbPath string) (History, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}
