// Package provider looks resources up by name across the places the game
// keeps them: loose override folders, module archives and the KEY/BIF set.
package provider

import (
	"io"

	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/resource"
)

// Provider finds resources by id. A miss is (nil, false, nil); an error
// means the resource exists but could not be read.
type Provider interface {
	Find(id resource.ID) ([]byte, bool, error)
}

// Lister is implemented by providers that can enumerate their contents.
type Lister interface {
	IDs() []resource.ID
}

// Directory serves the payloads of an opened ERF, MOD, SAV or RIM.
type Directory struct {
	Name string
	dir  *resource.Directory
}

// NewDirectory wraps an opened archive directory.
func NewDirectory(name string, dir *resource.Directory) *Directory {
	return &Directory{Name: name, dir: dir}
}

func (d *Directory) Find(id resource.ID) ([]byte, bool, error) {
	if !d.dir.Has(id) {
		return nil, false, nil
	}
	data, err := d.dir.Read(id)
	if err != nil {
		return nil, true, errors.WithMessagef(err, "%s", d.Name)
	}
	return data, true, nil
}

func (d *Directory) IDs() []resource.ID { return d.dir.IDs() }

func (d *Directory) Close() error { return d.dir.Close() }

// Chain asks each provider in turn and returns the first hit.
type Chain []Provider

func (c Chain) Find(id resource.ID) ([]byte, bool, error) {
	for _, p := range c {
		data, ok, err := p.Find(id)
		if err != nil || ok {
			return data, ok, err
		}
	}
	return nil, false, nil
}

// IDs merges the listings of every member that can list, without
// duplicates, sorted.
func (c Chain) IDs() []resource.ID {
	seen := make(map[resource.ID]bool)
	var out []resource.ID
	for _, p := range c {
		l, ok := p.(Lister)
		if !ok {
			continue
		}
		for _, id := range l.IDs() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	resource.SortIDs(out)
	return out
}

// Close closes every member that holds files and returns the first error.
func (c Chain) Close() error {
	var first error
	for _, p := range c {
		if cl, ok := p.(io.Closer); ok {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
