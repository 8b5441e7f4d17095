package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repository is a durable key/value store of one Session record per
// job. Implementations provide atomic get/put/list but no locking:
// concurrent writers follow last-writer-wins semantics. Callers that
// need to serialize a read-modify-write cycle must bring their own
// coordination (the conversion service keys a mutex by session id).
type Repository interface {
	// Get returns the session for id, or ErrNotFound.
	Get(id string) (*Session, error)

	// Put persists the session, replacing any previous record. The
	// session must satisfy CheckInvariant.
	Put(s *Session) error

	// List returns all readable sessions. Corrupt or unreadable records
	// are silently skipped.
	List() ([]*Session, error)
}

const (
	sessionFileExt = ".json"
	sessionFileMod = 0o600
)

// FileRepository stores each session as a JSON file named <id>.json in
// a single directory. Writes go through a temp file and rename so a
// crashed writer never leaves a half-written record behind. The store
// is not safe for uncoordinated multi-process writers.
type FileRepository struct {
	dir string
}

// NewFileRepository creates the backing directory if needed and returns
// the repository.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cannot create session directory %s: %w", dir, err)
	}
	return &FileRepository{dir: dir}, nil
}

// Get reads and decodes one session record.
func (r *FileRepository) Get(id string) (*Session, error) {
	data, err := os.ReadFile(r.path(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Put atomically replaces the session record on disk.
func (r *FileRepository) Put(s *Session) error {
	if s.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if err := s.CheckInvariant(); err != nil {
		return fmt.Errorf("session %s: %w", s.ID, err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	tmp, err := os.CreateTemp(r.dir, s.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session %s: %w", s.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session %s: %w", s.ID, err)
	}
	if err := os.Chmod(tmpName, sessionFileMod); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod session %s: %w", s.ID, err)
	}
	if err := os.Rename(tmpName, r.path(s.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store session %s: %w", s.ID, err)
	}
	return nil
}

// List scans the directory for session records, skipping anything that
// fails to read or decode.
func (r *FileRepository) List() ([]*Session, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}
		s, err := r.Get(strings.TrimSuffix(name, sessionFileExt))
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (r *FileRepository) path(id string) string {
	// Session ids are UUIDs; anything else must not escape the
	// directory.
	return filepath.Join(r.dir, filepath.Base(id)+sessionFileExt)
}
