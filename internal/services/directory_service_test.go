package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codejournal/internal/models"
	"codejournal/internal/repositories"
	"codejournal/internal/services"
)

func newDirectory(t *testing.T) (*services.DirectoryService, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	require.NoError(t, store.Init())
	return services.NewDirectoryService(store, nil), store
}

// createUser registers a user and waits out the millisecond so consecutive
// registrations in one test get distinct timestamp ids.
func createUser(t *testing.T, directory *services.DirectoryService, username string) *models.UserRecord {
	t.Helper()
	user, err := directory.CreateUser(username, username+"@example.com", "hashed")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	return user
}

func TestDirectoryService_CreateUserDefaults(t *testing.T) {
	directory, store := newDirectory(t)

	user := createUser(t, directory, "ana")

	assert.Equal(t, 50, user.XP)
	assert.Equal(t, 1, user.Level)
	assert.Equal(t, 0, user.Streak)
	assert.Equal(t, 50, user.Statistics.TotalXPEarned)
	require.Len(t, user.Achievements, 1)
	assert.Equal(t, "welcome", user.Achievements[0].ID)
	require.Len(t, user.XPHistory, 1)
	assert.Equal(t, 50, user.XPHistory[0].Change)
	assert.Equal(t, "Welcome bonus", user.XPHistory[0].Reason)
	assert.Equal(t, "dark", user.Settings.Theme)
	assert.Equal(t, models.SchemaVersion, user.Metadata.Version)

	master, err := store.LoadMaster()
	require.NoError(t, err)
	require.Len(t, master.Users, 1)
	assert.Equal(t, user.ID, master.Users[0].ID)
	assert.Equal(t, 1, master.Metadata.TotalUsers)
	assert.Equal(t, 50, master.Statistics.TotalXPAwarded)
}

func TestDirectoryService_CreateUserDuplicateUsername(t *testing.T) {
	directory, store := newDirectory(t)
	createUser(t, directory, "ana")

	_, err := directory.CreateUser("ana", "other@example.com", "hashed")
	assert.ErrorIs(t, err, services.ErrUsernameTaken)

	// Matching is case-sensitive: "Ana" is a different account.
	_, err = directory.CreateUser("Ana", "other@example.com", "hashed")
	assert.NoError(t, err)

	master, err := store.LoadMaster()
	require.NoError(t, err)
	assert.Len(t, master.Users, 2)
}

func TestDirectoryService_FindByUsername(t *testing.T) {
	directory, _ := newDirectory(t)
	created := createUser(t, directory, "ana")

	found, err := directory.FindByUsername("ana")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = directory.FindByUsername("nobody")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDirectoryService_FindByUsernameDesync(t *testing.T) {
	// An index row whose user file is gone reads as not-found.
	store := repositories.NewMemoryStore()
	require.NoError(t, store.Init())
	directory := services.NewDirectoryService(store, nil)

	master, err := store.LoadMaster()
	require.NoError(t, err)
	master.Users = append(master.Users, models.UserSummary{ID: 777, Username: "ghost"})
	require.NoError(t, store.SaveMaster(master))

	_, err = directory.FindByUsername("ghost")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDirectoryService_Leaderboard(t *testing.T) {
	directory, store := newDirectory(t)
	low := createUser(t, directory, "low")
	mid := createUser(t, directory, "mid")
	high := createUser(t, directory, "high")

	bump := func(u *models.UserRecord, xp int) {
		u.XP = xp
		require.NoError(t, store.SaveUser(u.ID, u))
	}
	bump(low, 60)
	bump(mid, 150)
	bump(high, 900)

	board, err := directory.Leaderboard(2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "high", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 900, board[0].XP)
	assert.Equal(t, "mid", board[1].Username)
	assert.Equal(t, 2, board[1].Rank)
}
