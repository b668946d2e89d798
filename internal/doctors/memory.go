package doctors

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

//go:embed seed.json
var seedJSON []byte

// MemoryDirectory is an in-process directory, safe for concurrent use.
type MemoryDirectory struct {
	mu      sync.RWMutex
	doctors []Doctor
}

// NewMemoryDirectory copies the supplied doctors into a new directory.
func NewMemoryDirectory(list []Doctor) *MemoryDirectory {
	d := &MemoryDirectory{}
	d.Replace(list)
	return d
}

// SeedDoctors returns the built-in hospital roster.
func SeedDoctors() ([]Doctor, error) {
	var list []Doctor
	if err := json.Unmarshal(seedJSON, &list); err != nil {
		return nil, fmt.Errorf("doctors: decode seed: %w", err)
	}
	return list, nil
}

// NewSeededDirectory returns a memory directory loaded with the built-in roster.
func NewSeededDirectory() (*MemoryDirectory, error) {
	list, err := SeedDoctors()
	if err != nil {
		return nil, err
	}
	return NewMemoryDirectory(list), nil
}

// Replace swaps the directory contents.
func (d *MemoryDirectory) Replace(list []Doctor) {
	cp := make([]Doctor, len(list))
	copy(cp, list)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Name < cp[j].Name })
	d.mu.Lock()
	d.doctors = cp
	d.mu.Unlock()
}

func (d *MemoryDirectory) FindByID(_ context.Context, id int64) (*Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.doctors {
		if d.doctors[i].ID == id {
			doc := d.doctors[i]
			return &doc, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) FindByName(_ context.Context, name string) (*Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.doctors {
		if NameMatches(d.doctors[i].Name, name) {
			doc := d.doctors[i]
			return &doc, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) FindBySpecialization(_ context.Context, spec Specialization) ([]Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Doctor
	for _, doc := range d.doctors {
		if doc.Specialization == spec && doc.Available {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) ListAvailable(_ context.Context) ([]Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Doctor
	for _, doc := range d.doctors {
		if doc.Available {
			out = append(out, doc)
		}
	}
	return out, nil
}
