package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"codejournal/internal/models"
	"codejournal/internal/repositories"
)

// XP amounts for the engine's standard awards.
const (
	SessionStartXP     = 10
	CodeRunXP          = 15
	ProjectSaveXP      = 25
	FirstProjectXP     = 50
	PerfectSessionXP   = 20
	XPPerLevel         = 100
	XPLostPerError     = 5
	xpHistoryLimit     = 100
	userExecutionLimit = 500
	userErrorLimit     = 200
	sessionExecLimit   = 100
	sessionErrorLimit  = 50
)

// ErrSessionNotFound is returned when a session id has no entry in the
// user's record.
var ErrSessionNotFound = errors.New("session not found")

// GamificationService owns the XP/level/session state transitions over a
// loaded user record. All mutations happen in memory on the caller-held
// record and each flow persists with a single save, so the session-start
// bookkeeping and its XP award land in one write.
type GamificationService struct {
	store  repositories.UserStore
	events EventPublisher
}

// NewGamificationService creates a new GamificationService. events may be
// nil.
func NewGamificationService(store repositories.UserStore, events EventPublisher) *GamificationService {
	return &GamificationService{store: store, events: events}
}

// levelForXP derives the level from an XP total: floor(xp/100)+1.
func levelForXP(xp int) int {
	if xp < 0 {
		return (xp-(XPPerLevel-1))/XPPerLevel + 1
	}
	return xp/XPPerLevel + 1
}

// awardOutcome summarizes what a single XP award changed.
type awardOutcome struct {
	LeveledUp    bool
	NewLevel     int
	LevelUpBonus int
}

// applyAward mutates the record for one XP award: XP accumulation, level
// threshold check, level-up achievement with its compounded bonus, and the
// capped history entry. Negative amounts are accepted and can lower the
// level; only upward crossings produce an achievement.
func (s *GamificationService) applyAward(u *models.UserRecord, amount int, reason string, sessionID *int64) awardOutcome {
	now := time.Now()
	oldXP := u.XP
	oldLevel := u.Level

	u.XP += amount
	u.Statistics.TotalXPEarned += amount

	newLevel := levelForXP(u.XP)
	leveledUp := newLevel > oldLevel
	bonus := 0
	if leveledUp {
		bonus = newLevel * 10
		u.Achievements = append(u.Achievements, models.Achievement{
			ID:          fmt.Sprintf("level_%d", newLevel),
			Name:        fmt.Sprintf("Level %d Achieved!", newLevel),
			Description: fmt.Sprintf("Reached level %d", newLevel),
			UnlockedAt:  now,
			XPBonus:     bonus,
		})
		// The bonus compounds into the XP total on top of the triggering
		// award.
		u.XP += bonus
		log.Printf("User %s leveled up to %d", u.Username, newLevel)
	}

	// Recompute after the bonus so level == floor(xp/100)+1 holds even when
	// the bonus itself crosses a threshold.
	u.Level = levelForXP(u.XP)

	u.XPHistory = append(u.XPHistory, models.XPEvent{
		ID:        uuid.NewString(),
		Change:    amount,
		Reason:    reason,
		OldXP:     oldXP,
		NewXP:     u.XP,
		LeveledUp: leveledUp,
		NewLevel:  u.Level,
		SessionID: sessionID,
		Timestamp: now,
	})
	if len(u.XPHistory) > xpHistoryLimit {
		u.XPHistory = u.XPHistory[len(u.XPHistory)-xpHistoryLimit:]
	}

	return awardOutcome{LeveledUp: leveledUp, NewLevel: newLevel, LevelUpBonus: bonus}
}

// applyRemoval deducts XP without letting the total go below zero and
// recomputes the level. No achievement or level-down event is produced.
func (s *GamificationService) applyRemoval(u *models.UserRecord, amount int, reason string, sessionID *int64) {
	now := time.Now()
	oldXP := u.XP

	u.XP -= amount
	if u.XP < 0 {
		u.XP = 0
	}
	u.Statistics.TotalXPLost += amount
	u.Level = levelForXP(u.XP)

	u.XPHistory = append(u.XPHistory, models.XPEvent{
		ID:        uuid.NewString(),
		Change:    -amount,
		Reason:    reason,
		OldXP:     oldXP,
		NewXP:     u.XP,
		NewLevel:  u.Level,
		SessionID: sessionID,
		Timestamp: now,
	})
	if len(u.XPHistory) > xpHistoryLimit {
		u.XPHistory = u.XPHistory[len(u.XPHistory)-xpHistoryLimit:]
	}
}

func (s *GamificationService) notifyLevelUp(u *models.UserRecord, out awardOutcome) {
	if !out.LeveledUp {
		return
	}
	publishEvent(s.events, EventUserLeveledUp, map[string]interface{}{
		"userId":   u.ID,
		"username": u.Username,
		"level":    u.Level,
		"xp":       u.XP,
		"bonus":    out.LevelUpBonus,
	})
}

// AwardResult is the snapshot returned after an XP award.
type AwardResult struct {
	User         *models.UserRecord `json:"user"`
	XPGained     int                `json:"xpGained"`
	LeveledUp    bool               `json:"leveledUp"`
	NewLevel     int                `json:"newLevel"`
	TotalXP      int                `json:"totalXP"`
	LevelUpBonus int                `json:"levelUpBonus"`
}

// AwardXP loads the record, applies the award and persists it.
func (s *GamificationService) AwardXP(id int64, amount int, reason string, sessionID *int64) (*AwardResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	out := s.applyAward(user, amount, reason, sessionID)

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after XP award: %w", err)
	}
	s.notifyLevelUp(user, out)

	return &AwardResult{
		User:         user,
		XPGained:     amount,
		LeveledUp:    out.LeveledUp,
		NewLevel:     user.Level,
		TotalXP:      user.XP,
		LevelUpBonus: out.LevelUpBonus,
	}, nil
}

// RemovalResult is the snapshot returned after an XP deduction.
type RemovalResult struct {
	User     *models.UserRecord `json:"user"`
	XPLost   int                `json:"xpLost"`
	NewLevel int                `json:"newLevel"`
	TotalXP  int                `json:"totalXP"`
	ErrorID  string             `json:"errorId"`
}

// RemoveXP deducts XP and records an error-history entry describing why.
func (s *GamificationService) RemoveXP(id int64, amount int, reason string, sessionID *int64) (*RemovalResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	event := models.ErrorEvent{
		ID:        uuid.NewString(),
		Message:   reason,
		Type:      "javascript",
		XPLost:    amount,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
	user.ErrorHistory = prependErrors(user.ErrorHistory, event, userErrorLimit)

	s.applyRemoval(user, amount, reason, sessionID)

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after XP removal: %w", err)
	}

	return &RemovalResult{
		User:     user,
		XPLost:   amount,
		NewLevel: user.Level,
		TotalXP:  user.XP,
		ErrorID:  event.ID,
	}, nil
}

// StartSessionResult carries the new session id with the updated record.
type StartSessionResult struct {
	SessionID int64              `json:"sessionId"`
	User      *models.UserRecord `json:"user"`
}

// StartSession appends a new active session to the record and applies the
// session-start award, persisting both in a single save. The session's
// xpEarned field starts at the nominal bookkeeping value; the actual credit
// flows through the award.
func (s *GamificationService) StartSession(id int64) (*StartSessionResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sessionID := now.UnixMilli()
	user.Sessions = append(user.Sessions, models.Session{
		ID:           sessionID,
		StartTime:    now,
		Duration:     0,
		XPEarned:     SessionStartXP,
		Projects:     []int64{},
		Achievements: []string{},
		Status:       models.SessionActive,
	})
	user.Statistics.TotalSessions++

	out := s.applyAward(user, SessionStartXP, "Session started", &sessionID)

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after session start: %w", err)
	}
	s.notifyLevelUp(user, out)

	publishEvent(s.events, EventSessionStarted, map[string]interface{}{
		"userId":    user.ID,
		"sessionId": sessionID,
	})

	return &StartSessionResult{SessionID: sessionID, User: user}, nil
}

// EndSessionResult carries the completed session with the updated record.
type EndSessionResult struct {
	Session *models.Session    `json:"session"`
	User    *models.UserRecord `json:"user"`
}

// EndSession completes an active session: stamps end time and duration,
// updates the rolling average session duration and counts perfect (no
// errors, at least one run, +20 XP) and productive (>= 5 runs) sessions.
func (s *GamificationService) EndSession(id, sessionID int64) (*EndSessionResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	sess := user.FindSession(sessionID)
	if sess == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
	}

	now := time.Now()
	duration := int(now.Sub(sess.StartTime).Minutes())
	sess.EndTime = &now
	sess.Duration = duration
	sess.Status = models.SessionCompleted

	stats := &user.Statistics
	if stats.TotalSessions > 0 {
		totalDuration := stats.AverageSessionDuration * float64(stats.TotalSessions-1)
		stats.AverageSessionDuration = (totalDuration + float64(duration)) / float64(stats.TotalSessions)
	}

	var out awardOutcome
	if sess.Errors == 0 && sess.CodeRuns > 0 {
		stats.PerfectSessions++
		user.Achievements = append(user.Achievements, models.Achievement{
			ID:          fmt.Sprintf("perfect_%d", now.UnixMilli()),
			Name:        "Perfect Session!",
			Description: "Completed a session with no errors",
			UnlockedAt:  now,
			XPBonus:     PerfectSessionXP,
		})
		out = s.applyAward(user, PerfectSessionXP, "Perfect session bonus", &sessionID)
	}
	if sess.CodeRuns >= 5 {
		stats.ProductiveSessions++
	}

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after session end: %w", err)
	}
	s.notifyLevelUp(user, out)

	return &EndSessionResult{Session: user.FindSession(sessionID), User: user}, nil
}

// ExecutionResult is the snapshot returned after a recorded code run.
type ExecutionResult struct {
	User         *models.UserRecord `json:"user"`
	ExecutionID  string             `json:"executionId"`
	XPGained     int                `json:"xpGained"`
	LeveledUp    bool               `json:"leveledUp"`
	LevelUpBonus int                `json:"levelUpBonus"`
}

// RecordExecution logs one code run into the session and user histories,
// updates line statistics and applies the code-run award; one save.
func (s *GamificationService) RecordExecution(id, sessionID int64, code models.CodeSnapshot, result models.CompilationResult) (*ExecutionResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	exec := models.Execution{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Timestamp:     time.Now(),
		Lines:         code.LineCount,
		CharCount:     code.CharCount,
		ExecutionTime: result.ExecutionTime,
		Success:       !result.HasErrors,
		ErrorCount:    len(result.Errors),
		WarningCount:  len(result.Warnings),
	}

	if sess := user.FindSession(sessionID); sess != nil {
		sess.CodeRuns++
		sess.ExecutionHistory = prependExecutions(sess.ExecutionHistory, exec, sessionExecLimit)
	}

	stats := &user.Statistics
	stats.TotalCodeRuns++
	stats.HTMLLines += code.LineCount.HTML
	stats.CSSLines += code.LineCount.CSS
	stats.JSLines += code.LineCount.JS
	stats.TotalLines += code.LineCount.Total

	user.ExecutionHistory = prependExecutions(user.ExecutionHistory, exec, userExecutionLimit)

	out := s.applyAward(user, CodeRunXP, "Code executed successfully", &sessionID)

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after code run: %w", err)
	}
	s.notifyLevelUp(user, out)

	return &ExecutionResult{
		User:         user,
		ExecutionID:  exec.ID,
		XPGained:     CodeRunXP,
		LeveledUp:    out.LeveledUp,
		LevelUpBonus: out.LevelUpBonus,
	}, nil
}

// CodeErrorResult is the snapshot returned after recorded compilation
// errors.
type CodeErrorResult struct {
	User         *models.UserRecord `json:"user"`
	ErrorID      string             `json:"errorId"`
	XPLost       int                `json:"xpLost"`
	ErrorCount   int                `json:"errorCount"`
	WarningCount int                `json:"warningCount"`
}

// RecordCodeErrors logs compilation errors into the session and user error
// histories and deducts 5 XP per error; one save.
func (s *GamificationService) RecordCodeErrors(id, sessionID int64, result models.CompilationResult) (*CodeErrorResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	errorCount := len(result.Errors)
	warningCount := len(result.Warnings)
	if errorCount == 0 {
		// Nothing to record: no history entry, no deduction, no save.
		return &CodeErrorResult{User: user, WarningCount: warningCount}, nil
	}
	xpLoss := errorCount * XPLostPerError

	messages := make([]string, 0, errorCount)
	for _, issue := range result.Errors {
		messages = append(messages, issue.Message)
	}
	reason := fmt.Sprintf("%d compilation error(s): %s", errorCount, strings.Join(messages, "; "))

	event := models.ErrorEvent{
		ID:           uuid.NewString(),
		Message:      reason,
		Type:         "compilation",
		ErrorCount:   errorCount,
		WarningCount: warningCount,
		XPLost:       xpLoss,
		SessionID:    &sessionID,
		Timestamp:    time.Now(),
	}

	if sess := user.FindSession(sessionID); sess != nil {
		sess.Errors += errorCount
		sess.XPLost += xpLoss
		sess.ErrorHistory = prependErrors(sess.ErrorHistory, event, sessionErrorLimit)
	}

	stats := &user.Statistics
	stats.TotalErrors += errorCount
	stats.TotalWarnings += warningCount

	user.ErrorHistory = prependErrors(user.ErrorHistory, event, userErrorLimit)

	s.applyRemoval(user, xpLoss, reason, &sessionID)

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after code errors: %w", err)
	}

	return &CodeErrorResult{
		User:         user,
		ErrorID:      event.ID,
		XPLost:       xpLoss,
		ErrorCount:   errorCount,
		WarningCount: warningCount,
	}, nil
}

// ProjectInput is the client payload for a project save.
type ProjectInput struct {
	Name        string   `json:"name" validate:"required"`
	HTML        string   `json:"html"`
	CSS         string   `json:"css"`
	JS          string   `json:"js"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ProjectResult carries the saved project with the updated record.
type ProjectResult struct {
	Project *models.Project    `json:"project"`
	User    *models.UserRecord `json:"user"`
}

// SaveProject stores a project on the record, updates line statistics and
// awards the save XP plus the first-project milestone when it applies.
func (s *GamificationService) SaveProject(id int64, input ProjectInput, sessionID *int64) (*ProjectResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	project := models.Project{
		ID:           now.UnixMilli(),
		Name:         input.Name,
		HTML:         input.HTML,
		CSS:          input.CSS,
		JS:           input.JS,
		Description:  input.Description,
		Tags:         input.Tags,
		CreatedAt:    now,
		LastModified: now,
		SessionID:    sessionID,
		Statistics: models.ProjectStats{
			HTMLLines: countLines(input.HTML),
			CSSLines:  countLines(input.CSS),
			JSLines:   countLines(input.JS),
		},
	}
	project.Statistics.TotalLines = project.Statistics.HTMLLines +
		project.Statistics.CSSLines + project.Statistics.JSLines

	user.Projects = append([]models.Project{project}, user.Projects...)
	stats := &user.Statistics
	stats.TotalProjects++
	stats.HTMLLines += project.Statistics.HTMLLines
	stats.CSSLines += project.Statistics.CSSLines
	stats.JSLines += project.Statistics.JSLines
	stats.TotalLines += project.Statistics.TotalLines

	var out awardOutcome
	if stats.TotalProjects == 1 {
		user.Achievements = append(user.Achievements, models.Achievement{
			ID:          "first_project",
			Name:        "First Project!",
			Description: "Created your first project",
			UnlockedAt:  now,
			XPBonus:     FirstProjectXP,
		})
		out = s.applyAward(user, FirstProjectXP, "First project milestone", sessionID)
	}
	saveOut := s.applyAward(user, ProjectSaveXP, fmt.Sprintf("Project %q saved", project.Name), sessionID)

	if err := s.store.SaveUser(id, user); err != nil {
		return nil, fmt.Errorf("failed to save user after project save: %w", err)
	}
	s.notifyLevelUp(user, out)
	s.notifyLevelUp(user, saveOut)

	return &ProjectResult{Project: &user.Projects[0], User: user}, nil
}

// countLines counts non-blank lines.
func countLines(src string) int {
	if src == "" {
		return 0
	}
	n := 0
	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func prependExecutions(list []models.Execution, item models.Execution, max int) []models.Execution {
	list = append([]models.Execution{item}, list...)
	if len(list) > max {
		list = list[:max]
	}
	return list
}

func prependErrors(list []models.ErrorEvent, item models.ErrorEvent, max int) []models.ErrorEvent {
	list = append([]models.ErrorEvent{item}, list...)
	if len(list) > max {
		list = list[:max]
	}
	return list
}
