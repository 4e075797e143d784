package repositories

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codejournal/internal/models"
)

// FileStore persists the master index and one JSON document per user under a
// base directory:
//
//	<base>/master.json
//	<base>/users/<id>.json
//
// Every operation is a whole-file read or write; there is no locking, so
// concurrent writers are last-writer-wins.
type FileStore struct {
	baseDir    string
	usersDir   string
	masterPath string
}

// NewFileStore creates a store rooted at baseDir. Call Init before use.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir:    baseDir,
		usersDir:   filepath.Join(baseDir, "users"),
		masterPath: filepath.Join(baseDir, "master.json"),
	}
}

// Init creates the directory tree and an empty master index if one does not
// exist yet. Safe to call repeatedly.
func (s *FileStore) Init() error {
	if err := os.MkdirAll(s.usersDir, 0o755); err != nil {
		return fmt.Errorf("failed to create users directory: %w", err)
	}

	if _, err := os.Stat(s.masterPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat master index: %w", err)
	}

	if err := s.writeMaster(models.NewMasterIndex()); err != nil {
		return err
	}
	log.Printf("Master index created at %s", s.masterPath)
	return nil
}

func (s *FileStore) userFilePath(id int64) string {
	return filepath.Join(s.usersDir, strconv.FormatInt(id, 10)+".json")
}

// LoadMaster reads and decodes master.json. A missing file yields
// ErrNotFound, a malformed one ErrCorrupt; callers treat either as "no
// index".
func (s *FileStore) LoadMaster() (*models.MasterIndex, error) {
	data, err := os.ReadFile(s.masterPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("master index: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read master index: %w", err)
	}

	var master models.MasterIndex
	if err := json.Unmarshal(data, &master); err != nil {
		return nil, fmt.Errorf("master index: %w: %v", ErrCorrupt, err)
	}
	return &master, nil
}

// SaveMaster stamps lastUpdated and rewrites master.json. The write is a
// single direct write, not atomic.
func (s *FileStore) SaveMaster(master *models.MasterIndex) error {
	master.Metadata.LastUpdated = time.Now()
	return s.writeMaster(master)
}

func (s *FileStore) writeMaster(master *models.MasterIndex) error {
	data, err := json.MarshalIndent(master, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode master index: %w", err)
	}
	if err := os.WriteFile(s.masterPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write master index: %w", err)
	}
	return nil
}

// LoadUser reads the per-user document for id.
func (s *FileStore) LoadUser(id int64) (*models.UserRecord, error) {
	data, err := os.ReadFile(s.userFilePath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user %d: %w", id, err)
	}

	var user models.UserRecord
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("user %d: %w: %v", id, ErrCorrupt, err)
	}
	return &user, nil
}

// SaveUser stamps the record's activity metadata, writes the per-user file,
// then refreshes the matching index row. A missing row or index skips the
// index update; the user file still persists.
func (s *FileStore) SaveUser(id int64, user *models.UserRecord) error {
	user.Metadata.LastActivity = time.Now()
	user.Metadata.Version = models.SchemaVersion

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user %d: %w", id, err)
	}
	if err := os.WriteFile(s.userFilePath(id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write user %d: %w", id, err)
	}

	s.refreshIndexRow(id, user)
	return nil
}

// refreshIndexRow updates the summary row for a saved user and recomputes
// the aggregate XP counter. Index failures are logged and swallowed: the
// per-user file is the source of truth and has already been written.
func (s *FileStore) refreshIndexRow(id int64, user *models.UserRecord) {
	master, err := s.LoadMaster()
	if err != nil {
		log.Printf("Skipping index update for user %d: %v", id, err)
		return
	}

	idx := master.FindUser(id)
	if idx == -1 {
		return
	}
	master.Users[idx] = models.SummaryOf(user)

	total := 0
	for _, row := range master.Users {
		total += row.XP
	}
	master.Statistics.TotalXPAwarded = total

	if err := s.SaveMaster(master); err != nil {
		log.Printf("Failed to save master index after updating user %d: %v", id, err)
	}
}

// ListUserIDs enumerates the per-user files in the users directory.
func (s *FileStore) ListUserIDs() ([]int64, error) {
	entries, err := os.ReadDir(s.usersDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read users directory: %w", err)
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
