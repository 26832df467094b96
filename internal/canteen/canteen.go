// Package canteen loads the directory of canteens orders may be placed with.
//
// A directory file is gzipped text with one canteen per line in the form
// "id,Display Name". The name is optional. Blank lines and lines starting
// with '#' are ignored.
package canteen

import (
	"context"
	"sort"
)

// Validator checks canteen ids on incoming orders.
type Validator interface {
	// Validate returns model.ErrUnknownCanteen if id is not a known canteen.
	Validate(ctx context.Context, id string) error

	// Canteens lists every known canteen ordered by id.
	Canteens() []Canteen

	// Close releases resources held by the validator.
	Close() error
}

// Loader reads one directory file.
type Loader interface {
	Load(ctx context.Context, path string) (*Directory, error)
}

// Canteen is a single kitchen or stall.
type Canteen struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory is a set of canteens keyed by id.
type Directory struct {
	entries map[string]string
}

// NewDirectory creates an empty directory.
func NewDirectory(capacity int) *Directory {
	return &Directory{entries: make(map[string]string, capacity)}
}

// Add inserts or renames a canteen. An empty name defaults to the id.
func (d *Directory) Add(id, name string) {
	if name == "" {
		name = id
	}
	d.entries[id] = name
}

// Contains reports whether id is in the directory.
func (d *Directory) Contains(id string) bool {
	_, ok := d.entries[id]
	return ok
}

// Name returns the display name of id.
func (d *Directory) Name(id string) (string, bool) {
	name, ok := d.entries[id]
	return name, ok
}

// Size returns the number of canteens.
func (d *Directory) Size() int {
	return len(d.entries)
}

// Merge copies every entry of other into d. Entries in other win.
func (d *Directory) Merge(other *Directory) {
	for id, name := range other.entries {
		d.entries[id] = name
	}
}

// Canteens lists the directory ordered by id.
func (d *Directory) Canteens() []Canteen {
	out := make([]Canteen, 0, len(d.entries))
	for id, name := range d.entries {
		out = append(out, Canteen{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
