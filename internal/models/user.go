package models

import "time"

// UserRecord is the full per-user document stored at database/users/<id>.json.
// The file is the source of truth; master.json only carries a summary row.
type UserRecord struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	// Bcrypt hash. The document key is kept as "password" for compatibility
	// with existing user files.
	PasswordHash string `json:"password"`

	XP     int `json:"xp"`
	Level  int `json:"level"`
	Streak int `json:"streak"`

	Statistics       Statistics    `json:"statistics"`
	Achievements     []Achievement `json:"achievements"`
	Projects         []Project     `json:"projects"`
	Sessions         []Session     `json:"sessions"`
	XPHistory        []XPEvent     `json:"xpHistory"`
	ErrorHistory     []ErrorEvent  `json:"errorHistory"`
	ExecutionHistory []Execution   `json:"executionHistory"`

	Settings Settings     `json:"settings"`
	Metadata UserMetadata `json:"metadata"`
}

// Statistics are the per-user lifetime counters.
type Statistics struct {
	TotalSessions          int     `json:"totalSessions"`
	TotalCodeRuns          int     `json:"totalCodeRuns"`
	TotalProjects          int     `json:"totalProjects"`
	TotalErrors            int     `json:"totalErrors"`
	TotalWarnings          int     `json:"totalWarnings"`
	TotalXPEarned          int     `json:"totalXpEarned"`
	TotalXPLost            int     `json:"totalXpLost"`
	HTMLLines              int     `json:"htmlLines"`
	CSSLines               int     `json:"cssLines"`
	JSLines                int     `json:"jsLines"`
	TotalLines             int     `json:"totalLines"`
	AverageSessionDuration float64 `json:"averageSessionDuration"`
	LongestStreak          int     `json:"longestStreak"`
	ErrorsFixed            int     `json:"errorsFixed"`
	PerfectSessions        int     `json:"perfectSessions"`
	ProductiveSessions     int     `json:"productiveSessions"`
}

// Achievement is an unlock record. The achievements list is append-only.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlockedAt"`
	XPBonus     int       `json:"xpBonus"`
}

// Session is one bounded coding activity. Status is "active" until the
// session is ended, then "completed".
type Session struct {
	ID               int64        `json:"id"`
	StartTime        time.Time    `json:"startTime"`
	EndTime          *time.Time   `json:"endTime"`
	Duration         int          `json:"duration"` // minutes
	CodeRuns         int          `json:"codeRuns"`
	Errors           int          `json:"errors"`
	XPEarned         int          `json:"xpEarned"`
	XPLost           int          `json:"xpLost"`
	Projects         []int64      `json:"projects"`
	Achievements     []string     `json:"achievements"`
	ExecutionHistory []Execution  `json:"executionHistory,omitempty"`
	ErrorHistory     []ErrorEvent `json:"errorHistory,omitempty"`
	Status           string       `json:"status"`
}

// Session status values.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// XPEvent is one entry in the capped xpHistory log.
type XPEvent struct {
	ID        string    `json:"id"`
	Change    int       `json:"change"`
	Reason    string    `json:"reason"`
	OldXP     int       `json:"oldXP"`
	NewXP     int       `json:"newXP"`
	LeveledUp bool      `json:"leveledUp"`
	NewLevel  int       `json:"newLevel"`
	SessionID *int64    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is one entry in the capped errorHistory log.
type ErrorEvent struct {
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	ErrorCount   int       `json:"errorCount"`
	WarningCount int       `json:"warningCount"`
	XPLost       int       `json:"xpLost"`
	SessionID    *int64    `json:"sessionId"`
	Timestamp    time.Time `json:"timestamp"`
	Fixed        bool      `json:"fixed"`
}

// LineCount breaks a code snapshot down by language.
type LineCount struct {
	HTML  int `json:"html"`
	CSS   int `json:"css"`
	JS    int `json:"js"`
	Total int `json:"total"`
}

// CodeSnapshot is the code submitted with a run-code request.
type CodeSnapshot struct {
	HTML      string    `json:"html"`
	CSS       string    `json:"css"`
	JS        string    `json:"js"`
	LineCount LineCount `json:"lineCount"`
	CharCount int       `json:"charCount"`
}

// CompilationIssue is a single error or warning reported by the client-side
// compilation step.
type CompilationIssue struct {
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Category string `json:"category,omitempty"` // syntax, runtime, promise
	Severity string `json:"severity,omitempty"`
}

// CompilationResult is the outcome of one client-side code execution.
type CompilationResult struct {
	HasErrors     bool               `json:"hasErrors"`
	SyntaxValid   bool               `json:"syntaxValid"`
	ExecutionTime float64            `json:"executionTime"`
	Errors        []CompilationIssue `json:"errors"`
	Warnings      []CompilationIssue `json:"warnings"`
	ConsoleOutput []string           `json:"consoleOutput"`
}

// Execution is one entry in the capped executionHistory logs (newest first).
type Execution struct {
	ID            string    `json:"id"`
	SessionID     int64     `json:"sessionId"`
	Timestamp     time.Time `json:"timestamp"`
	Lines         LineCount `json:"lines"`
	CharCount     int       `json:"charCount"`
	ExecutionTime float64   `json:"executionTime"`
	Success       bool      `json:"success"`
	ErrorCount    int       `json:"errorCount"`
	WarningCount  int       `json:"warningCount"`
}

// Project is a saved user project with its own line statistics.
type Project struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	HTML         string       `json:"html"`
	CSS          string       `json:"css"`
	JS           string       `json:"js"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastModified time.Time    `json:"lastModified"`
	SessionID    *int64       `json:"sessionId"`
	Statistics   ProjectStats `json:"statistics"`
}

// ProjectStats counts non-blank lines per language in a project.
type ProjectStats struct {
	HTMLLines  int `json:"htmlLines"`
	CSSLines   int `json:"cssLines"`
	JSLines    int `json:"jsLines"`
	TotalLines int `json:"totalLines"`
}

// Settings is the per-user configuration bag.
type Settings struct {
	Theme         string `json:"theme"`
	AutoSave      bool   `json:"autoSave"`
	Notifications bool   `json:"notifications"`
	SoundEnabled  bool   `json:"soundEnabled"`
	Difficulty    string `json:"difficulty"`
	Language      string `json:"language"`
}

// DefaultSettings returns the settings applied to new accounts.
func DefaultSettings() Settings {
	return Settings{
		Theme:         "dark",
		AutoSave:      true,
		Notifications: true,
		SoundEnabled:  true,
		Difficulty:    "beginner",
		Language:      "en",
	}
}

// UserMetadata holds the record's bookkeeping timestamps and schema version.
type UserMetadata struct {
	CreatedAt     time.Time `json:"createdAt"`
	LastLoginDate time.Time `json:"lastLoginDate"`
	LastActivity  time.Time `json:"lastActivity"`
	Version       string    `json:"version"`
	Migrated      bool      `json:"migrated"`
}

// SchemaVersion is stamped on every saved document.
const SchemaVersion = "2.0.0"

// FindSession returns a pointer into Sessions for the given id, or nil.
func (u *UserRecord) FindSession(sessionID int64) *Session {
	for i := range u.Sessions {
		if u.Sessions[i].ID == sessionID {
			return &u.Sessions[i]
		}
	}
	return nil
}

// Sanitized returns a copy safe to return to clients: the password hash is
// blanked out.
func (u *UserRecord) Sanitized() *UserRecord {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
