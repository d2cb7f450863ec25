package repo

import (
	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/database/sqlitedb"
	"math/rand"
	"os"
	"path"
	"strconv"
)

// MockDB returns an in-memory sqlite db.
func MockDB() (database.Database, error) {
	db, err := sqlitedb.NewMemoryDB()
	if err != nil {
		return nil, err
	}
	if err := autoMigrateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MockRepo returns a repo which uses a tmp data directory
// and in-memory database.
func MockRepo() (*Repo, error) {
	n := rand.Intn(1000000)
	dataDir := path.Join(os.TempDir(), "pocketd-test", strconv.Itoa(n))
	return newRepo(dataDir, "", true)
}
