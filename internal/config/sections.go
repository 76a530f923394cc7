package config

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// SectionStore is the ordered (section, key) -> string value map that mirrors
// the parameter record in text form. It backs both the sync wire protocol and
// the persisted config file. Lookups are case-insensitive; the stored
// spelling is preserved on disk and on the wire.
type SectionStore struct {
	mu   sync.Mutex
	file *ini.File
	path string
}

// LoadSectionStore reads the config file at path into a section store.
func LoadSectionStore(path string) (*SectionStore, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %q: %w", path, err)
	}
	return &SectionStore{file: file, path: path}, nil
}

// NewSectionStore builds a store from raw INI text, persisted to path on Save.
func NewSectionStore(path string, data []byte) (*SectionStore, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse section data: %w", err)
	}
	return &SectionStore{file: file, path: path}, nil
}

// Get returns the value for (section, key), matching names case-insensitively.
func (s *SectionStore) Get(section, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := s.findSection(section)
	if sec == nil {
		return "", false
	}
	for _, k := range sec.Keys() {
		if strings.EqualFold(k.Name(), key) {
			return k.Value(), true
		}
	}
	return "", false
}

// Upsert inserts or replaces one value. An existing entry keeps its stored
// spelling; a new entry adopts the caller's.
func (s *SectionStore) Upsert(section, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(section, key, value)
}

func (s *SectionStore) upsertLocked(section, key, value string) {
	sec := s.findSection(section)
	if sec == nil {
		sec, _ = s.file.NewSection(section)
	}
	for _, k := range sec.Keys() {
		if strings.EqualFold(k.Name(), key) {
			k.SetValue(value)
			return
		}
	}
	sec.Key(key).SetValue(value)
}

func (s *SectionStore) findSection(name string) *ini.Section {
	for _, sec := range s.file.Sections() {
		if strings.EqualFold(sec.Name(), name) {
			return sec
		}
	}
	return nil
}

// WirePayload flattens the store into the sync protocol's payload form: one
// "[section]key=value" line per entry, in stored order.
func (s *SectionStore) WirePayload() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	for _, sec := range s.file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		for _, k := range sec.Keys() {
			fmt.Fprintf(&buf, "[%s]%s=%s\n", sec.Name(), k.Name(), k.Value())
		}
	}
	return buf.Bytes()
}

// ApplyWireLines upserts every well-formed "[section]key=value" line in
// payload and returns how many were applied. Malformed lines are skipped
// individually; they never fail the rest of the payload.
func (s *SectionStore) ApplyWireLines(payload string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || line[0] != '[' {
			continue
		}
		end := strings.IndexByte(line, ']')
		if end < 0 {
			continue
		}
		eq := strings.IndexByte(line[end:], '=')
		if eq < 0 {
			continue
		}
		eq += end
		section := line[1:end]
		key := line[end+1 : eq]
		value := line[eq+1:]
		if section == "" || key == "" {
			continue
		}
		s.upsertLocked(section, key, value)
		applied++
	}
	return applied
}

// Save persists the store back to its config file.
func (s *SectionStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.SaveTo(s.path); err != nil {
		return fmt.Errorf("save config file %q: %w", s.path, err)
	}
	return nil
}

// Path returns the backing file path.
func (s *SectionStore) Path() string {
	return s.path
}
