package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"codejournal/internal/models"
	"codejournal/internal/repositories"
)

// WelcomeBonusXP is credited to every new account.
const WelcomeBonusXP = 50

// ErrUsernameTaken is returned when a registration collides with an existing
// index row. Matching is exact and case-sensitive.
var ErrUsernameTaken = errors.New("username already exists")

// DirectoryService maps usernames to user ids through the master index and
// owns user creation.
type DirectoryService struct {
	store  repositories.UserStore
	events EventPublisher
}

// NewDirectoryService creates a new DirectoryService. events may be nil.
func NewDirectoryService(store repositories.UserStore, events EventPublisher) *DirectoryService {
	return &DirectoryService{store: store, events: events}
}

// CreateUser builds the full default record for a new account and registers
// it in the master index. passwordHash must already be hashed by the caller.
//
// The user id is the millisecond creation timestamp; concurrent
// registrations can collide, which is accepted at this scale.
func (s *DirectoryService) CreateUser(username, email, passwordHash string) (*models.UserRecord, error) {
	master, err := s.store.LoadMaster()
	if err == nil && master.FindUsername(username) != nil {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}

	now := time.Now()
	id := now.UnixMilli()

	user := &models.UserRecord{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		XP:           WelcomeBonusXP,
		Level:        1,
		Streak:       0,
		Statistics: models.Statistics{
			TotalXPEarned: WelcomeBonusXP,
		},
		Achievements: []models.Achievement{
			{
				ID:          "welcome",
				Name:        "Welcome to Coding!",
				Description: "Created your account",
				UnlockedAt:  now,
				XPBonus:     WelcomeBonusXP,
			},
		},
		Projects: []models.Project{},
		Sessions: []models.Session{},
		XPHistory: []models.XPEvent{
			{
				ID:        uuid.NewString(),
				Change:    WelcomeBonusXP,
				Reason:    "Welcome bonus",
				OldXP:     0,
				NewXP:     WelcomeBonusXP,
				NewLevel:  1,
				Timestamp: now,
			},
		},
		ErrorHistory:     []models.ErrorEvent{},
		ExecutionHistory: []models.Execution{},
		Settings:         models.DefaultSettings(),
		Metadata: models.UserMetadata{
			CreatedAt:     now,
			LastLoginDate: now,
			LastActivity:  now,
			Version:       models.SchemaVersion,
		},
	}

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Register the summary row. A missing index is tolerated: the record
	// itself has persisted.
	if master != nil {
		master.Users = append(master.Users, models.SummaryOf(user))
		master.Metadata.TotalUsers++
		master.Statistics.TotalXPAwarded += WelcomeBonusXP
		if err := s.store.SaveMaster(master); err != nil {
			log.Printf("Failed to register user %d in master index: %v", id, err)
		}
	}

	log.Printf("User %s created with ID %d", username, id)

	publishEvent(s.events, EventUserRegistered, map[string]interface{}{
		"userId":   id,
		"username": username,
		"level":    user.Level,
		"xp":       user.XP,
	})

	return user, nil
}

// FindByUsername scans the index for an exact username match and loads the
// full record. An index hit whose per-user file is missing is reported as a
// not-found (index/file desync).
func (s *DirectoryService) FindByUsername(username string) (*models.UserRecord, error) {
	master, err := s.store.LoadMaster()
	if err != nil {
		return nil, fmt.Errorf("failed to load master index: %w", err)
	}

	row := master.FindUsername(username)
	if row == nil {
		return nil, fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
	}

	user, err := s.store.LoadUser(row.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("user file for %q missing despite index row: %w", username, repositories.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// FindByID loads a record directly by id, bypassing the index.
func (s *DirectoryService) FindByID(id int64) (*models.UserRecord, error) {
	return s.store.LoadUser(id)
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	Username     string    `json:"username"`
	XP           int       `json:"xp"`
	Level        int       `json:"level"`
	LastActivity time.Time `json:"lastActivity"`
}

// Leaderboard returns up to limit index rows ordered by XP descending.
func (s *DirectoryService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	master, err := s.store.LoadMaster()
	if err != nil {
		return nil, fmt.Errorf("failed to load master index: %w", err)
	}

	rows := make([]models.UserSummary, len(master.Users))
	copy(rows, master.Users)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].XP > rows[j].XP })

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	board := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		board[i] = LeaderboardEntry{
			Rank:         i + 1,
			Username:     row.Username,
			XP:           row.XP,
			Level:        row.Level,
			LastActivity: row.LastActivity,
		}
	}
	return board, nil
}
