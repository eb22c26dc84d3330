package timezone

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

// OffsetCache maps airport codes to their resolved zone. It is backed by a
// comma separated file with one "code,offsetSeconds,abbreviation" line per
// resolution. The file is only ever appended to; when a code appears on
// several lines the last one wins.
type OffsetCache struct {
	path       string
	generation string

	mu      sync.RWMutex
	entries map[string]ZoneEntry
	version uint64
}

// NewOffsetCache creates an empty cache backed by path. An empty path keeps
// the cache in memory only.
func NewOffsetCache(path string) *OffsetCache {
	return &OffsetCache{
		path:       path,
		generation: uuid.NewString(),
		entries:    make(map[string]ZoneEntry),
	}
}

// OpenOffsetCache creates a cache backed by path and loads it. A missing file
// is not an error: the cache starts empty and the file is created on the
// first Put.
func OpenOffsetCache(path string) (*OffsetCache, error) {
	c := NewOffsetCache(path)
	if err := c.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("Offset cache file not found, starting empty", "path", path)
			return c, nil
		}
		return nil, err
	}
	return c, nil
}

// Path returns the backing file path.
func (c *OffsetCache) Path() string {
	return c.path
}

// Load reads the backing file into memory. Entries already in memory are kept
// unless the file has a line for the same code.
func (c *OffsetCache) Load() error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("%w: open offset cache: %w", ErrStorage, err)
	}
	defer f.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseCacheLine(line)
		if err != nil {
			logger.Warn("Skipping malformed offset cache line", "path", c.path, "line", lineNo, "error", err)
			continue
		}
		c.entries[entry.Code] = entry
	}
	c.version++
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read offset cache: %w", ErrStorage, err)
	}
	return nil
}

func parseCacheLine(line string) (ZoneEntry, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return ZoneEntry{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrParse, len(fields))
	}
	code := strings.TrimSpace(fields[0])
	if code == "" {
		return ZoneEntry{}, fmt.Errorf("%w: empty airport code", ErrParse)
	}
	offset, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return ZoneEntry{}, fmt.Errorf("%w: offset %q: %w", ErrParse, fields[1], err)
	}
	return ZoneEntry{
		Code:         code,
		GMTOffset:    offset,
		Abbreviation: strings.TrimSpace(fields[2]),
	}, nil
}

// Get returns the entry for code.
func (c *OffsetCache) Get(code string) (ZoneEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[code]
	return entry, ok
}

// Lookup is Get with an ErrUnknownAirport error for absent codes.
func (c *OffsetCache) Lookup(code string) (ZoneEntry, error) {
	entry, ok := c.Get(code)
	if !ok {
		return ZoneEntry{}, fmt.Errorf("%w: %s", ErrUnknownAirport, code)
	}
	return entry, nil
}

// Put appends entry to the backing file and then stores it in memory. If the
// append fails the in-memory state is left untouched.
func (c *OffsetCache) Put(entry ZoneEntry) error {
	if entry.Code == "" {
		return fmt.Errorf("%w: empty airport code", ErrParse)
	}
	if strings.ContainsAny(entry.Code, ",\r\n") || strings.ContainsAny(entry.Abbreviation, ",\r\n") {
		return fmt.Errorf("%w: entry %q does not fit one cache line", ErrParse, entry.String())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		if err := c.appendLine(entry); err != nil {
			return err
		}
	}
	c.entries[entry.Code] = entry
	c.version++
	return nil
}

// Revision identifies the cache contents. It changes with every Put or Load
// and differs between caches in different processes.
func (c *OffsetCache) Revision() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation + ":" + strconv.FormatUint(c.version, 10)
}

func (c *OffsetCache) appendLine(entry ZoneEntry) error {
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open offset cache for append: %w", ErrStorage, err)
	}
	if _, err := fmt.Fprintln(f, entry.String()); err != nil {
		f.Close()
		return fmt.Errorf("%w: append offset cache: %w", ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close offset cache: %w", ErrStorage, err)
	}
	return nil
}

// Len returns the number of distinct airport codes in memory.
func (c *OffsetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a snapshot of all entries sorted by airport code.
func (c *OffsetCache) Entries() []ZoneEntry {
	c.mu.RLock()
	entries := make([]ZoneEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
	return entries
}
