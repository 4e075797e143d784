package repositories

import "codejournal/internal/models"

// UserStore defines the interface for user-record and master-index
// persistence.
//
// SaveUser stamps the record's activity metadata, persists the per-user
// document, and then refreshes the matching index row. The index update is
// skipped silently when the row (or the whole index) is missing: the user
// file still persists and remains the source of truth.
type UserStore interface {
	// Init prepares the storage. It is idempotent and safe to call more
	// than once.
	Init() error

	LoadMaster() (*models.MasterIndex, error)
	SaveMaster(master *models.MasterIndex) error

	LoadUser(id int64) (*models.UserRecord, error)
	SaveUser(id int64, user *models.UserRecord) error

	// ListUserIDs enumerates the ids of all stored user records.
	ListUserIDs() ([]int64, error)
}
