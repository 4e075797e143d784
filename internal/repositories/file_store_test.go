package repositories_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codejournal/internal/models"
	"codejournal/internal/repositories"
)

func newTestUser(id int64) *models.UserRecord {
	now := time.Now()
	return &models.UserRecord{
		ID:       id,
		Username: "ana",
		Email:    "a@x.com",
		XP:       50,
		Level:    1,
		Metadata: models.UserMetadata{
			CreatedAt:     now,
			LastLoginDate: now,
			LastActivity:  now,
			Version:       models.SchemaVersion,
		},
	}
}

func TestFileStore_InitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := repositories.NewFileStore(filepath.Join(dir, "database"))

	require.NoError(t, store.Init())

	master, err := store.LoadMaster()
	require.NoError(t, err)
	assert.Empty(t, master.Users)
	assert.Equal(t, models.SchemaVersion, master.Metadata.Version)

	// A second Init must not reset an existing index.
	master.Users = append(master.Users, models.UserSummary{ID: 1, Username: "ana"})
	require.NoError(t, store.SaveMaster(master))
	require.NoError(t, store.Init())

	reloaded, err := store.LoadMaster()
	require.NoError(t, err)
	assert.Len(t, reloaded.Users, 1)
}

func TestFileStore_LoadMasterMissing(t *testing.T) {
	store := repositories.NewFileStore(filepath.Join(t.TempDir(), "database"))

	_, err := store.LoadMaster()
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestFileStore_LoadMasterCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	store := repositories.NewFileStore(dir)
	require.NoError(t, store.Init())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "master.json"), []byte("{not json"), 0o644))

	_, err := store.LoadMaster()
	assert.ErrorIs(t, err, repositories.ErrCorrupt)
}

func TestFileStore_SaveAndLoadUser(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	store := repositories.NewFileStore(dir)
	require.NoError(t, store.Init())

	user := newTestUser(1234)
	require.NoError(t, store.SaveUser(user.ID, user))

	// Save stamps activity metadata and schema version.
	assert.Equal(t, models.SchemaVersion, user.Metadata.Version)
	assert.WithinDuration(t, time.Now(), user.Metadata.LastActivity, time.Second)

	loaded, err := store.LoadUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, loaded.Username)
	assert.Equal(t, user.XP, loaded.XP)

	// The per-user file exists under users/<id>.json.
	_, statErr := os.Stat(filepath.Join(dir, "users", "1234.json"))
	assert.NoError(t, statErr)
}

func TestFileStore_LoadUserMissing(t *testing.T) {
	store := repositories.NewFileStore(filepath.Join(t.TempDir(), "database"))
	require.NoError(t, store.Init())

	_, err := store.LoadUser(99)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestFileStore_LoadUserCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	store := repositories.NewFileStore(dir)
	require.NoError(t, store.Init())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "7.json"), []byte("oops"), 0o644))

	_, err := store.LoadUser(7)
	assert.ErrorIs(t, err, repositories.ErrCorrupt)
}

func TestFileStore_SaveUserRefreshesIndexRow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	store := repositories.NewFileStore(dir)
	require.NoError(t, store.Init())

	user := newTestUser(1)
	require.NoError(t, store.SaveUser(user.ID, user))

	master, err := store.LoadMaster()
	require.NoError(t, err)
	master.Users = append(master.Users, models.SummaryOf(user))
	master.Metadata.TotalUsers = 1
	require.NoError(t, store.SaveMaster(master))

	user.XP = 200
	user.Level = 3
	require.NoError(t, store.SaveUser(user.ID, user))

	reloaded, err := store.LoadMaster()
	require.NoError(t, err)
	require.Len(t, reloaded.Users, 1)
	assert.Equal(t, 200, reloaded.Users[0].XP)
	assert.Equal(t, 3, reloaded.Users[0].Level)
	assert.Equal(t, 200, reloaded.Statistics.TotalXPAwarded)
}

func TestFileStore_SaveUserSkipsMissingIndexRow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	store := repositories.NewFileStore(dir)
	require.NoError(t, store.Init())

	// No index row for this user: the file still persists and the index is
	// untouched.
	user := newTestUser(42)
	require.NoError(t, store.SaveUser(user.ID, user))

	loaded, err := store.LoadUser(42)
	require.NoError(t, err)
	assert.Equal(t, "ana", loaded.Username)

	master, err := store.LoadMaster()
	require.NoError(t, err)
	assert.Empty(t, master.Users)
}

func TestFileStore_ListUserIDs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	store := repositories.NewFileStore(dir)
	require.NoError(t, store.Init())

	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, store.SaveUser(id, newTestUser(id)))
	}
	// Non-record files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "notes.txt"), []byte("x"), 0o644))

	ids, err := store.ListUserIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
}
