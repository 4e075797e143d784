package models

import "time"

// MasterIndex is the registry file at database/master.json. It holds one
// denormalized summary row per user; the per-user file remains authoritative.
type MasterIndex struct {
	Users      []UserSummary    `json:"users"`
	Metadata   MasterMetadata   `json:"metadata"`
	Statistics MasterStatistics `json:"statistics"`
}

// UserSummary is the lightweight row the index keeps for each user.
type UserSummary struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Level        int       `json:"level"`
	XP           int       `json:"xp"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// MasterMetadata tracks index bookkeeping.
type MasterMetadata struct {
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"lastUpdated"`
	TotalUsers  int       `json:"totalUsers"`
	Version     string    `json:"version"`
}

// MasterStatistics holds aggregate counters. totalXpAwarded is recomputed
// from the rows on every user save; the other counters are incremented ad
// hoc and can drift.
type MasterStatistics struct {
	TotalXPAwarded int `json:"totalXpAwarded"`
	TotalSessions  int `json:"totalSessions"`
	TotalProjects  int `json:"totalProjects"`
	TotalErrors    int `json:"totalErrors"`
}

// NewMasterIndex returns an empty index stamped with the current time.
func NewMasterIndex() *MasterIndex {
	now := time.Now()
	return &MasterIndex{
		Users: []UserSummary{},
		Metadata: MasterMetadata{
			Created:     now,
			LastUpdated: now,
			TotalUsers:  0,
			Version:     SchemaVersion,
		},
	}
}

// SummaryOf builds the index row for a user record.
func SummaryOf(u *UserRecord) UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Level:        u.Level,
		XP:           u.XP,
		CreatedAt:    u.Metadata.CreatedAt,
		LastActivity: u.Metadata.LastActivity,
	}
}

// FindUser returns the index position of the row with the given id, or -1.
func (m *MasterIndex) FindUser(id int64) int {
	for i := range m.Users {
		if m.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// FindUsername returns the row with the exact username, or nil. Matching is
// case-sensitive.
func (m *MasterIndex) FindUsername(username string) *UserSummary {
	for i := range m.Users {
		if m.Users[i].Username == username {
			return &m.Users[i]
		}
	}
	return nil
}
