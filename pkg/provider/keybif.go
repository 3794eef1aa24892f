package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/keybif"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// KeyBif serves the base game resources listed in a KEY file. Every BIF
// the KEY names is opened up front.
type KeyBif struct {
	Key  *keybif.Key
	bifs []*keybif.Bif
}

// NewKeyBif reads keyPath and opens its BIFs, whose paths are relative to
// gameDir. Path components match case-insensitively when the exact name
// does not exist.
func NewKeyBif(gameDir, keyPath string) (*KeyBif, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, err
	}
	k, err := keybif.ReadKey(f)
	f.Close()
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", keyPath)
	}

	kb := &KeyBif{Key: k, bifs: make([]*keybif.Bif, len(k.Bifs))}
	for i, ref := range k.Bifs {
		path, err := resolvePath(gameDir, ref.Path)
		if err != nil {
			kb.Close()
			return nil, errors.WithMessagef(err, "%s: bif %d", keyPath, i)
		}
		b, err := keybif.OpenBifFile(path)
		if err != nil {
			kb.Close()
			return nil, err
		}
		kb.bifs[i] = b
	}
	glog.V(1).Infof("provider: key %s lists %d resources in %d bifs", filepath.Base(keyPath), len(k.Entries), len(k.Bifs))
	return kb, nil
}

func (kb *KeyBif) Find(id resource.ID) ([]byte, bool, error) {
	e, ok := kb.Key.Lookup(id)
	if !ok {
		return nil, false, nil
	}
	data, err := kb.bifs[e.Bif].ReadIndex(e.Index)
	if err != nil {
		return nil, true, errors.WithMessagef(err, "%s", kb.Key.Bifs[e.Bif].Path)
	}
	return data, true, nil
}

func (kb *KeyBif) IDs() []resource.ID {
	out := make([]resource.ID, len(kb.Key.Entries))
	for i, e := range kb.Key.Entries {
		out[i] = e.ID
	}
	return out
}

// Close closes every opened BIF.
func (kb *KeyBif) Close() error {
	var first error
	for _, b := range kb.bifs {
		if b == nil {
			continue
		}
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// resolvePath joins a slash-separated relative path onto root, falling
// back to a case-insensitive match for each component.
func resolvePath(root, rel string) (string, error) {
	exact := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}
	cur := root
	for _, part := range strings.Split(rel, "/") {
		if part == "" {
			continue
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", err
		}
		found := ""
		for _, de := range entries {
			if strings.EqualFold(de.Name(), part) {
				found = de.Name()
				break
			}
		}
		if found == "" {
			return "", errors.Wrapf(os.ErrNotExist, "%s", filepath.Join(cur, part))
		}
		cur = filepath.Join(cur, found)
	}
	return cur, nil
}
