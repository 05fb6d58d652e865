package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Store layers the memory cache over an optional disk cache. Disk hits are
// promoted to memory.
type Store struct {
	memory *MemoryCache
	disk   *DiskCache

	mu         sync.Mutex
	promotions int64
}

// Options configures a Store.
type Options struct {
	// MaxSize bounds each tier, in bytes.
	MaxSize int64
	// Dir enables the disk tier when set.
	Dir string
}

// NewStore creates a Store.
func NewStore(opts Options) (*Store, error) {
	s := &Store{memory: NewMemoryCache(opts.MaxSize)}
	if opts.Dir != "" {
		disk, err := NewDiskCache(opts.Dir, opts.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("unable to open disk cache: %w", err)
		}
		s.disk = disk
	}
	return s, nil
}

// Get looks key up in memory, then on disk.
func (s *Store) Get(key string) ([]byte, bool) {
	if data, ok := s.memory.Get(key); ok {
		return data, true
	}
	if s.disk == nil {
		return nil, false
	}
	data, ok := s.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := s.memory.Put(key, data); err == nil {
		s.mu.Lock()
		s.promotions++
		s.mu.Unlock()
	}
	return data, true
}

// Put stores value in every tier. A value too large for a tier is skipped
// by that tier.
func (s *Store) Put(key string, value []byte) error {
	if err := s.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}
	if s.disk != nil {
		if err := s.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			return fmt.Errorf("disk cache: %w", err)
		}
	}
	return nil
}

// Delete removes key from every tier.
func (s *Store) Delete(key string) error {
	_ = s.memory.Delete(key)
	if s.disk != nil {
		return s.disk.Delete(key)
	}
	return nil
}

// Clear empties every tier.
func (s *Store) Clear() error {
	_ = s.memory.Clear()
	if s.disk != nil {
		return s.disk.Clear()
	}
	return nil
}

// Size returns the bytes held in memory plus on disk.
func (s *Store) Size() int64 {
	size := s.memory.Size()
	if s.disk != nil {
		size += s.disk.Size()
	}
	return size
}

// Stats returns combined counters. A disk hit also counts as a memory miss,
// so only memory misses that the disk could not serve are counted.
func (s *Store) Stats() Stats {
	m := s.memory.Stats()
	if s.disk == nil {
		return m
	}
	d := s.disk.Stats()
	out := Stats{
		Capacity:  m.Capacity + d.Capacity,
		Size:      m.Size + d.Size,
		ItemCount: d.ItemCount,
		Hits:      m.Hits + d.Hits,
		Misses:    d.Misses,
		Evictions: m.Evictions + d.Evictions,
		LastEvict: m.LastEvict,
	}
	if d.LastEvict.After(out.LastEvict) {
		out.LastEvict = d.LastEvict
	}
	out.HitRate = hitRate(out)
	return out
}

// LevelStats returns the counters of one tier. The second value is false if
// the tier is disabled.
func (s *Store) LevelStats(level Level) (Stats, bool) {
	switch level {
	case LevelMemory:
		return s.memory.Stats(), true
	case LevelDisk:
		if s.disk != nil {
			return s.disk.Stats(), true
		}
	}
	return Stats{}, false
}

// Promotions returns how many disk hits were copied into memory.
func (s *Store) Promotions() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promotions
}

// Close flushes the disk index.
func (s *Store) Close() error {
	if s.disk == nil {
		return nil
	}
	if err := s.disk.Close(); err != nil {
		log.Warn("unable to close disk cache", "error", err)
		return err
	}
	return nil
}

var _ Cache = (*Store)(nil)
