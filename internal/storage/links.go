package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/RayenLT/files/internal/models"
	"github.com/RayenLT/files/pkg/logger"
)

// LinkStore persists the whole link mapping as one JSON document. There is no
// locking: concurrent writers race last-write-wins, which is an accepted
// limitation of the flat-file design.
type LinkStore struct {
	path string
}

func NewLinkStore(path string) *LinkStore {
	return &LinkStore{path: path}
}

// Path returns the location of the backing document.
func (s *LinkStore) Path() string {
	return s.path
}

// Check reports whether the store's directory is reachable. Used by the
// health endpoint.
func (s *LinkStore) Check() error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Load reads the backing document. A missing file yields an empty mapping. An
// unreadable, unparsable or non-object document is moved aside to a
// timestamped backup and an empty mapping is returned; corruption never
// surfaces to callers.
func (s *LinkStore) Load() models.LinkMap {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.LinkMap{}
		}
		logger.Warn().Err(err).Str("file", s.path).Msg("Error reading links file")
		s.backupCorrupted()
		return models.LinkMap{}
	}

	var links models.LinkMap
	if err := json.Unmarshal(data, &links); err != nil {
		logger.Warn().Err(err).Str("file", s.path).Msg("Links file is not valid JSON")
		s.backupCorrupted()
		return models.LinkMap{}
	}
	if links == nil {
		// Valid JSON but not an object (e.g. "null").
		logger.Warn().Str("file", s.path).Msg("Links file is not a mapping")
		s.backupCorrupted()
		return models.LinkMap{}
	}
	return links
}

// Save serializes the whole mapping and replaces the document atomically via a
// temp file and rename, so a concurrent reader never sees a partial write.
func (s *LinkStore) Save(links models.LinkMap) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".links-*.json")
	if err != nil {
		return fmt.Errorf("creating temp links file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing links file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing links file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing links file: %w", err)
	}
	return nil
}

func (s *LinkStore) backupCorrupted() {
	backup := fmt.Sprintf("%s.backup.%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		logger.Warn().Err(err).Msg("Could not back up corrupted links file")
		return
	}
	logger.Warn().Str("backup", backup).Msg("Corrupted links file backed up")
}

// NextConsecutiveID returns the smallest non-negative integer not present
// among the integer-parsable keys, as a string. Gaps left by deletions are
// reused; custom aliases don't occupy numeric slots.
func NextConsecutiveID(links models.LinkMap) string {
	numeric := make([]int, 0, len(links))
	for id := range links {
		if n, err := strconv.Atoi(id); err == nil {
			numeric = append(numeric, n)
		}
	}
	sort.Ints(numeric)

	next := 0
	for _, n := range numeric {
		if n == next {
			next++
		} else if n > next {
			break
		}
	}
	return strconv.Itoa(next)
}
