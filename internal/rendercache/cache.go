package rendercache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"deckforge/internal/fileutil"
	"deckforge/internal/logging"
)

// Reason explains a NeedsRender decision.
type Reason string

const (
	ReasonOutputMissing Reason = "output_missing"
	ReasonNotCached     Reason = "not_cached"
	ReasonHashChanged   Reason = "hash_changed"
	ReasonUpToDate      Reason = "up_to_date"
)

// Unit identifies a renderable slide and the files its hash covers.
type Unit struct {
	ID     string
	Source string
	Output string
	// Deps are unit-specific dependency files hashed between Source and the
	// shared set.
	Deps []string
}

// Entry is one stored unit hash.
type Entry struct {
	UnitID string
	Hash   string
}

// Cache maps unit ids to the hash recorded at their last successful render.
// A Cache is safe for concurrent use within one process; a single writer per
// cache file is assumed across processes.
type Cache struct {
	path   string
	hasher Hasher
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]string
}

// New loads the cache at path. Load problems never fail construction: the
// cache starts empty and the reason is logged.
func New(path string, hasher Hasher, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "rendercache")
	c := &Cache{
		path:    path,
		hasher:  hasher,
		logger:  logger,
		entries: make(map[string]string),
	}
	if err := c.load(); err != nil {
		logger.Info("render cache reset",
			logging.String(logging.FieldEventType, "rendercache_load_reset"),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "all units will be rendered"))
		c.entries = make(map[string]string)
	}
	return c
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Hasher returns the hasher used for unit hashes.
func (c *Cache) Hasher() Hasher {
	return c.hasher
}

// UnitHash computes the current hash for u.
func (c *Cache) UnitHash(u Unit) (string, error) {
	return c.hasher.UnitHash(u.Source, u.Deps...)
}

// NeedsRender reports whether u must be rendered. It is false only when the
// output exists and the stored hash equals the current one.
func (c *Cache) NeedsRender(u Unit) (bool, Reason, error) {
	if _, err := os.Stat(u.Output); err != nil {
		return true, ReasonOutputMissing, nil
	}

	c.mu.RLock()
	stored, ok := c.entries[strings.TrimSpace(u.ID)]
	c.mu.RUnlock()
	if !ok {
		return true, ReasonNotCached, nil
	}

	current, err := c.UnitHash(u)
	if err != nil {
		return true, "", err
	}
	if current != stored {
		return true, ReasonHashChanged, nil
	}
	return false, ReasonUpToDate, nil
}

// RecordRendered stores the current hash for u and persists the store,
// overwriting any previous entry.
func (c *Cache) RecordRendered(u Unit) error {
	unitID := strings.TrimSpace(u.ID)
	if unitID == "" {
		return errors.New("unit id cannot be empty")
	}
	hash, err := c.UnitHash(u)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[unitID] = hash
	if err := c.save(); err != nil {
		return fmt.Errorf("persist render cache: %w", err)
	}
	c.logger.Debug("recorded unit hash",
		logging.String(logging.FieldUnitID, unitID),
		logging.String("hash", hash))
	return nil
}

// InvalidateAll empties the store and persists it.
func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist render cache: %w", err)
	}
	c.logger.Debug("render cache invalidated")
	return nil
}

// Lookup returns the stored hash for unitID. Surrounding whitespace is ignored,
// matching RecordRendered.
func (c *Cache) Lookup(unitID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.entries[strings.TrimSpace(unitID)]
	return hash, ok
}

// Entries returns every stored hash sorted by unit id.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for id, hash := range c.entries {
		out = append(out, Entry{UnitID: id, Hash: hash})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID < out[j].UnitID })
	return out
}

// Count returns the number of stored entries.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for id, value := range raw {
		hash, ok := value.(string)
		if !ok || strings.TrimSpace(id) == "" {
			continue
		}
		c.entries[id] = hash
	}
	c.logger.Debug("loaded render cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the store atomically as an indented JSON object. Caller holds mu.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	data = append(data, '\n')

	if err := fileutil.WriteAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}
