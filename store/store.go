// Package store provides a small persisted key-value store addressed by
// namespace and key, backing credential storage across power cycles.
//
// Values are plain strings capped at MaxValueLen bytes, mirroring the
// fixed-size NVS string entries on the appliance. Reads are fail-open: a
// missing file, unreadable file, or absent key yields an empty string
// rather than an error, so a corrupted store never blocks boot.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// MaxValueLen is the maximum usable length of a stored value in bytes
// (64-byte slots, 63 usable plus terminator on the original hardware).
const MaxValueLen = 63

// ErrValueTooLong is returned by Set when a value exceeds MaxValueLen.
var ErrValueTooLong = fmt.Errorf("store: value exceeds %d bytes", MaxValueLen)

// Store is a file-backed namespace/key string store. All methods are safe
// for concurrent use.
type Store struct {
	path string
	data map[string]map[string]string
	mu   sync.Mutex
}

// Open loads the store at path, creating an empty one if the file does
// not exist or cannot be parsed. Open never fails on bad content; it
// logs and starts fresh, because persisted state is best-effort.
func Open(path string) *Store {
	s := &Store{
		path: path,
		data: make(map[string]map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: cannot read %s: %v (starting empty)", path, err)
		}
		return s
	}

	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		log.Printf("store: cannot parse %s: %v (starting empty)", path, err)
		s.data = make(map[string]map[string]string)
	}
	if s.data == nil {
		s.data = make(map[string]map[string]string)
	}
	return s
}

// GetString returns the value for key in namespace, or "" if absent.
func (s *Store) GetString(namespace, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[namespace]
	if !ok {
		return ""
	}
	return ns[key]
}

// SetString stores value under namespace/key and persists the store to
// disk. The previous value is overwritten. Values longer than
// MaxValueLen are rejected before anything is modified.
func (s *Store) SetString(namespace, key, value string) error {
	if len(value) > MaxValueLen {
		return ErrValueTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value

	return s.flushLocked()
}

// Delete removes namespace/key and persists. Deleting an absent key is a
// no-op that still succeeds.
func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[namespace]
	if !ok {
		return nil
	}
	if _, ok := ns[key]; !ok {
		return nil
	}
	delete(ns, key)
	return s.flushLocked()
}

// flushLocked writes the store file. Caller holds s.mu.
func (s *Store) flushLocked() error {
	out, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}
