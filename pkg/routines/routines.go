// Package routines maps engine routine numbers to their script names.
// ACTION instructions only carry the number; disassembly shows the name.
package routines

import (
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yoremi/kotor-go/pkg/codec"
)

// file is the YAML layout: routine names in engine order.
//
//	game: kotor1
//	routines:
//	  - Random
//	  - PrintString
type file struct {
	Game     string   `yaml:"game"`
	Routines []string `yaml:"routines"`
}

// Table is a name/number lookup. A nil *Table knows no names.
type Table struct {
	Game  string
	names []string
	index map[string]uint16
}

// New builds a table from names in engine order.
func New(game string, names []string) (*Table, error) {
	if len(names) > 0x10000 {
		return nil, codec.Validationf("routines: %d names exceed the routine space", len(names))
	}
	t := &Table{Game: game, names: names, index: make(map[string]uint16, len(names))}
	for i, n := range names {
		if n == "" {
			return nil, codec.Validationf("routines: routine %d has no name", i)
		}
		if prev, dup := t.index[n]; dup {
			return nil, codec.Validationf("routines: %q is both %d and %d", n, prev, i)
		}
		t.index[n] = uint16(i)
	}
	return t, nil
}

// Load reads a YAML routine table.
func Load(r io.Reader) (*Table, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, codec.Formatf("routines: %v", err)
	}
	t, err := New(f.Game, f.Routines)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("routines: loaded %d names for %q", t.Len(), t.Game)
	return t, nil
}

// LoadFile reads a YAML routine table from disk.
func LoadFile(name string) (*Table, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Load(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", name)
	}
	return t, nil
}

// Len returns the number of known routines.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Name returns the name of routine idx.
func (t *Table) Name(idx uint16) (string, bool) {
	if t == nil || int(idx) >= len(t.names) {
		return "", false
	}
	return t.names[idx], true
}

// Index returns the number of the routine called name.
func (t *Table) Index(name string) (uint16, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[name]
	return i, ok
}
