package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// KeyFile is the KEY every game install keeps at its root.
const KeyFile = "chitin.key"

// OpenGame builds the lookup chain of an install: the override folder
// first, then the named module archives in order, then the KEY/BIF set.
// Missing override and key are tolerated; a named module must exist.
func OpenGame(gameDir string, modules ...string) (Chain, error) {
	var c Chain
	if dir, err := resolvePath(gameDir, "override"); err == nil {
		f, err := NewFolder(dir)
		if err != nil {
			return nil, err
		}
		c = append(c, f)
	}
	for _, m := range modules {
		var (
			d   *Directory
			err error
		)
		if strings.EqualFold(filepath.Ext(m), ".rim") {
			d, err = NewRim(m)
		} else {
			d, err = NewErf(m)
		}
		if err != nil {
			c.Close()
			return nil, err
		}
		c = append(c, d)
	}
	keyPath, err := resolvePath(gameDir, KeyFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		c.Close()
		return nil, err
	}
	kb, err := NewKeyBif(gameDir, keyPath)
	if err != nil {
		c.Close()
		return nil, err
	}
	return append(c, kb), nil
}
