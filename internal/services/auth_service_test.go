package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codejournal/internal/repositories"
	"codejournal/internal/services"
)

func newAuth(t *testing.T) (*services.AuthService, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	require.NoError(t, store.Init())
	directory := services.NewDirectoryService(store, nil)
	engine := services.NewGamificationService(store, nil)
	return services.NewAuthService(store, directory, engine, "test_jwt_secret"), store
}

func TestAuthService_RegisterHashesPassword(t *testing.T) {
	auth, _ := newAuth(t)

	user, err := auth.Register("ana", "ana@example.com", "hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2")))
	assert.Equal(t, 50, user.XP)
}

func TestAuthService_Login(t *testing.T) {
	auth, _ := newAuth(t)
	_, err := auth.Register("ana", "ana@example.com", "hunter2")
	require.NoError(t, err)

	result, err := auth.Login("ana", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	claims, err := auth.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims["username"])
}

func TestAuthService_LoginBadCredentials(t *testing.T) {
	auth, _ := newAuth(t)
	_, err := auth.Register("ana", "ana@example.com", "hunter2")
	require.NoError(t, err)

	_, err = auth.Login("ana", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Unknown user reads the same as a wrong password.
	_, err = auth.Login("nobody", "hunter2")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_DailyBonusOncePerDay(t *testing.T) {
	auth, store := newAuth(t)
	user, err := auth.Register("ana", "ana@example.com", "hunter2")
	require.NoError(t, err)

	// Registration stamps lastLoginDate with today, so the first login of
	// the same day gets no bonus.
	result, err := auth.Login("ana", "hunter2")
	require.NoError(t, err)
	assert.False(t, result.DailyBonus)
	assert.Equal(t, 50, result.User.XP)

	// Rewind the stored lastLoginDate to yesterday: the next login fires
	// the bonus.
	record, err := store.LoadUser(user.ID)
	require.NoError(t, err)
	record.Metadata.LastLoginDate = time.Now().AddDate(0, 0, -1)
	require.NoError(t, store.SaveUser(user.ID, record))

	result, err = auth.Login("ana", "hunter2")
	require.NoError(t, err)
	assert.True(t, result.DailyBonus)
	assert.Equal(t, 70, result.User.XP)

	last := result.User.XPHistory[len(result.User.XPHistory)-1]
	assert.Equal(t, "Daily login bonus", last.Reason)

	// A second login the same day does not stack.
	result, err = auth.Login("ana", "hunter2")
	require.NoError(t, err)
	assert.False(t, result.DailyBonus)
	assert.Equal(t, 70, result.User.XP)
}

func TestAuthService_ValidateTokenRejectsTampering(t *testing.T) {
	auth, _ := newAuth(t)
	_, err := auth.Register("ana", "ana@example.com", "hunter2")
	require.NoError(t, err)

	result, err := auth.Login("ana", "hunter2")
	require.NoError(t, err)

	_, err = auth.ValidateToken(result.Token + "x")
	assert.Error(t, err)

	_, err = auth.ValidateToken("not-a-token")
	assert.Error(t, err)
}
