package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"codejournal/internal/models"
	"codejournal/internal/repositories"
)

// StatsService computes read-only summaries over stored records and the
// master index.
type StatsService struct {
	store repositories.UserStore
}

// NewStatsService creates a new StatsService.
func NewStatsService(store repositories.UserStore) *StatsService {
	return &StatsService{store: store}
}

// StatsSummary is the computed portion of a user-stats response.
type StatsSummary struct {
	ActiveSessions     int     `json:"activeSessions"`
	CompletedSessions  int     `json:"completedSessions"`
	TotalSessionTime   int     `json:"totalSessionTime"`
	AverageSessionTime float64 `json:"averageSessionTime"`
	XPPerSession       float64 `json:"xpPerSession"`
	ErrorRate          float64 `json:"errorRate"`
	ProjectsThisWeek   int     `json:"projectsThisWeek"`
}

// StatsRecent holds the most recent history slices for quick display.
type StatsRecent struct {
	XPHistory       []models.XPEvent    `json:"xpHistory"`
	ErrorHistory    []models.ErrorEvent `json:"errorHistory"`
	LastProject     *models.Project     `json:"lastProject"`
	LastAchievement *models.Achievement `json:"lastAchievement"`
}

// UserStatsResult is the full user-stats payload.
type UserStatsResult struct {
	User    *models.UserRecord `json:"user"`
	Summary StatsSummary       `json:"summary"`
	Recent  StatsRecent        `json:"recent"`
}

// UserStats loads a record and derives its summary statistics.
func (s *StatsService) UserStats(id int64) (*UserStatsResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	summary := StatsSummary{}
	for _, sess := range user.Sessions {
		switch sess.Status {
		case models.SessionActive:
			summary.ActiveSessions++
		case models.SessionCompleted:
			summary.CompletedSessions++
			summary.TotalSessionTime += sess.Duration
		}
	}
	if summary.CompletedSessions > 0 {
		summary.AverageSessionTime = float64(summary.TotalSessionTime) / float64(summary.CompletedSessions)
		summary.XPPerSession = float64(user.XP) / float64(summary.CompletedSessions)
	}
	if user.Statistics.TotalCodeRuns > 0 {
		summary.ErrorRate = float64(user.Statistics.TotalErrors) / float64(user.Statistics.TotalCodeRuns)
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	for _, p := range user.Projects {
		if p.CreatedAt.After(weekAgo) {
			summary.ProjectsThisWeek++
		}
	}

	recent := StatsRecent{
		XPHistory:    tailXP(user.XPHistory, 10),
		ErrorHistory: headErrors(user.ErrorHistory, 10),
	}
	if len(user.Projects) > 0 {
		recent.LastProject = &user.Projects[0]
	}
	if len(user.Achievements) > 0 {
		recent.LastAchievement = &user.Achievements[len(user.Achievements)-1]
	}

	return &UserStatsResult{User: user, Summary: summary, Recent: recent}, nil
}

// HistoryEntry is a merged execution/error history item.
type HistoryEntry struct {
	Type      string             `json:"type"` // execution or error
	Timestamp time.Time          `json:"timestamp"`
	Execution *models.Execution  `json:"execution,omitempty"`
	Error     *models.ErrorEvent `json:"error,omitempty"`
}

// History kinds accepted by History.
const (
	HistoryAll        = "all"
	HistoryExecutions = "executions"
	HistoryErrors     = "errors"
)

// HistoryResult is the history payload with its pre-limit total.
type HistoryResult struct {
	Entries []HistoryEntry `json:"history"`
	Total   int            `json:"total"`
	Kind    string         `json:"type"`
}

// History returns up to limit entries of the requested kind, newest first.
func (s *StatsService) History(id int64, kind string, limit int) (*HistoryResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	switch kind {
	case HistoryExecutions:
		for i := range user.ExecutionHistory {
			e := user.ExecutionHistory[i]
			entries = append(entries, HistoryEntry{Type: "execution", Timestamp: e.Timestamp, Execution: &e})
		}
	case HistoryErrors:
		for i := range user.ErrorHistory {
			e := user.ErrorHistory[i]
			entries = append(entries, HistoryEntry{Type: "error", Timestamp: e.Timestamp, Error: &e})
		}
	default:
		kind = HistoryAll
		for i := range user.ExecutionHistory {
			e := user.ExecutionHistory[i]
			entries = append(entries, HistoryEntry{Type: "execution", Timestamp: e.Timestamp, Execution: &e})
		}
		for i := range user.ErrorHistory {
			e := user.ErrorHistory[i]
			entries = append(entries, HistoryEntry{Type: "error", Timestamp: e.Timestamp, Error: &e})
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		})
	}

	total := len(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return &HistoryResult{Entries: entries, Total: total, Kind: kind}, nil
}

// SessionStats are the derived numbers attached to a session detail view.
type SessionStats struct {
	TotalExecutions  int     `json:"totalExecutions"`
	TotalErrors      int     `json:"totalErrors"`
	SuccessRate      float64 `json:"successRate"`
	AvgExecutionTime float64 `json:"avgExecutionTime"`
}

// SessionDetailResult is a session plus its derived statistics.
type SessionDetailResult struct {
	Session    *models.Session `json:"session"`
	Statistics SessionStats    `json:"statistics"`
}

// SessionDetail returns one session of a record with computed statistics.
func (s *StatsService) SessionDetail(id, sessionID int64) (*SessionDetailResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	sess := user.FindSession(sessionID)
	if sess == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
	}

	stats := SessionStats{
		TotalExecutions: len(sess.ExecutionHistory),
		TotalErrors:     len(sess.ErrorHistory),
	}
	if sess.CodeRuns > 0 {
		stats.SuccessRate = float64(sess.CodeRuns-sess.Errors) / float64(sess.CodeRuns) * 100
	}
	if n := len(sess.ExecutionHistory); n > 0 {
		var total float64
		for _, e := range sess.ExecutionHistory {
			total += e.ExecutionTime
		}
		stats.AvgExecutionTime = total / float64(n)
	}

	return &SessionDetailResult{Session: sess, Statistics: stats}, nil
}

// DailyActivity is one day of the analytics activity series.
type DailyActivity struct {
	Date        string  `json:"date"`
	Executions  int     `json:"executions"`
	Errors      int     `json:"errors"`
	SuccessRate float64 `json:"successRate"`
}

// AnalyticsResult aggregates activity for a timeframe.
type AnalyticsResult struct {
	Timeframe       string           `json:"timeframe"`
	TotalExecutions int              `json:"totalExecutions"`
	TotalErrors     int              `json:"totalErrors"`
	TotalSessions   int              `json:"totalSessions"`
	SuccessRate     float64          `json:"successRate"`
	AvgExecTime     float64          `json:"avgExecutionTime"`
	CodeStats       models.LineCount `json:"codeStats"`
	ErrorBreakdown  ErrorBreakdown   `json:"errorBreakdown"`
	DailyActivity   []DailyActivity  `json:"dailyActivity"`
}

// ErrorBreakdown counts recent compilation issues by category.
type ErrorBreakdown struct {
	SyntaxErrors  int `json:"syntaxErrors"`
	RuntimeErrors int `json:"runtimeErrors"`
	PromiseErrors int `json:"promiseErrors"`
}

// Analytics filters the record's histories by timeframe (7days, 30days,
// 90days or all) and aggregates them.
func (s *StatsService) Analytics(id int64, timeframe string) (*AnalyticsResult, error) {
	user, err := s.store.LoadUser(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var cutoff time.Time
	switch timeframe {
	case "7days":
		cutoff = now.AddDate(0, 0, -7)
	case "30days":
		cutoff = now.AddDate(0, 0, -30)
	case "90days":
		cutoff = now.AddDate(0, 0, -90)
	default:
		timeframe = "all"
	}

	result := &AnalyticsResult{Timeframe: timeframe}

	var recentExecs []models.Execution
	for _, e := range user.ExecutionHistory {
		if e.Timestamp.After(cutoff) {
			recentExecs = append(recentExecs, e)
		}
	}
	var recentErrors []models.ErrorEvent
	for _, e := range user.ErrorHistory {
		if e.Timestamp.After(cutoff) {
			recentErrors = append(recentErrors, e)
		}
	}
	for _, sess := range user.Sessions {
		if sess.StartTime.After(cutoff) {
			result.TotalSessions++
		}
	}

	result.TotalExecutions = len(recentExecs)
	result.TotalErrors = len(recentErrors)
	if result.TotalExecutions > 0 {
		result.SuccessRate = float64(result.TotalExecutions-result.TotalErrors) / float64(result.TotalExecutions) * 100
		var total float64
		for _, e := range recentExecs {
			total += e.ExecutionTime
		}
		result.AvgExecTime = total / float64(result.TotalExecutions)
	}

	for _, e := range recentExecs {
		result.CodeStats.HTML += e.Lines.HTML
		result.CodeStats.CSS += e.Lines.CSS
		result.CodeStats.JS += e.Lines.JS
		result.CodeStats.Total += e.Lines.Total
	}

	// Error events only carry counts per category via their type; sessions
	// store the full issues, so the breakdown counts event types here.
	for _, e := range recentErrors {
		switch e.Type {
		case "compilation":
			result.ErrorBreakdown.SyntaxErrors += e.ErrorCount
		case "runtime":
			result.ErrorBreakdown.RuntimeErrors += e.ErrorCount
		case "promise":
			result.ErrorBreakdown.PromiseErrors += e.ErrorCount
		}
	}

	result.DailyActivity = dailyActivity(recentExecs, cutoff, now)
	return result, nil
}

// dailyActivity buckets executions per calendar day between cutoff and now.
func dailyActivity(execs []models.Execution, cutoff, now time.Time) []DailyActivity {
	if cutoff.IsZero() && len(execs) > 0 {
		// "all" timeframe starts at the oldest execution.
		cutoff = execs[len(execs)-1].Timestamp
	}
	if cutoff.IsZero() {
		return []DailyActivity{}
	}

	days := make(map[string]*DailyActivity)
	var order []string
	for d := cutoff; !d.After(now); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		days[key] = &DailyActivity{Date: key}
		order = append(order, key)
	}

	for _, e := range execs {
		key := e.Timestamp.Format("2006-01-02")
		day, ok := days[key]
		if !ok {
			continue
		}
		day.Executions++
		if !e.Success {
			day.Errors++
		}
	}

	out := make([]DailyActivity, 0, len(order))
	for _, key := range order {
		day := days[key]
		if day.Executions > 0 {
			day.SuccessRate = float64(day.Executions-day.Errors) / float64(day.Executions) * 100
		}
		out = append(out, *day)
	}
	return out
}

// OverviewResult is the admin view of the database.
type OverviewResult struct {
	TotalUsers      int                     `json:"totalUsers"`
	UserFilesCount  int                     `json:"userFilesCount"`
	UserFiles       []string                `json:"userFiles"`
	Statistics      models.MasterStatistics `json:"statistics"`
	DatabaseVersion string                  `json:"databaseVersion"`
	LastUpdated     time.Time               `json:"lastUpdated"`
}

// Overview reports the master index metadata alongside the actual per-user
// file count; the two can drift and the drift is worth seeing.
func (s *StatsService) Overview() (*OverviewResult, error) {
	master, err := s.store.LoadMaster()
	if err != nil {
		return nil, fmt.Errorf("failed to load master index: %w", err)
	}

	ids, err := s.store.ListUserIDs()
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	files := make([]string, 0, 5)
	for _, id := range ids {
		if len(files) == 5 {
			break
		}
		files = append(files, strconv.FormatInt(id, 10)+".json")
	}

	return &OverviewResult{
		TotalUsers:      master.Metadata.TotalUsers,
		UserFilesCount:  len(ids),
		UserFiles:       files,
		Statistics:      master.Statistics,
		DatabaseVersion: master.Metadata.Version,
		LastUpdated:     master.Metadata.LastUpdated,
	}, nil
}

func tailXP(list []models.XPEvent, n int) []models.XPEvent {
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}

func headErrors(list []models.ErrorEvent, n int) []models.ErrorEvent {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
