package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

type DuplicatePolicy string

const (
	DuplicateFail      DuplicatePolicy = "fail"
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateFail:
		return DuplicateFail, nil
	case DuplicateOverwrite:
		return DuplicateOverwrite, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", s, DuplicateFail, DuplicateOverwrite)
}

type ManifestEntry struct {
	Logical  string
	Physical string
}

// Manifest maps logical asset names to fingerprinted output names for a
// single build run. It is safe for concurrent use.
type Manifest struct {
	mu      sync.Mutex
	policy  DuplicatePolicy
	entries map[string]string
}

func NewManifest(policy DuplicatePolicy) *Manifest {
	if policy == "" {
		policy = DuplicateFail
	}
	return &Manifest{
		policy:  policy,
		entries: make(map[string]string),
	}
}

func (m *Manifest) Record(logical, physical string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.entries[logical]; ok && m.policy == DuplicateFail {
		return &AssetError{
			Path: logical,
			Kind: ErrDuplicateLogicalName,
			Err:  fmt.Errorf("already mapped to %s", prev),
		}
	}
	m.entries[logical] = physical
	return nil
}

func (m *Manifest) Lookup(logical string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	physical, ok := m.entries[logical]
	return physical, ok
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns the mapping sorted by logical name.
func (m *Manifest) Entries() []ManifestEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ManifestEntry, 0, len(m.entries))
	for logical, physical := range m.entries {
		out = append(out, ManifestEntry{Logical: logical, Physical: physical})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Logical < out[j].Logical })
	return out
}

// Marshal renders the manifest as a flat JSON object. encoding/json sorts
// map keys, so equal manifests always serialize to equal bytes.
func (m *Manifest) Marshal() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func ParseManifest(data []byte) (*Manifest, error) {
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return &Manifest{policy: DuplicateFail, entries: entries}, nil
}
