package provider

import (
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/compress"
	"github.com/yoremi/kotor-go/pkg/resource"
)

type looseFile struct {
	path   string
	method compress.Method
}

// Folder serves loose files from one directory, the way the override
// folder works. Files may be stored compressed as name.ext.lz4,
// name.ext.zst or name.ext.zz; a plain file wins over a compressed one.
type Folder struct {
	Dir   string
	files map[resource.ID]looseFile
}

// NewFolder scans dir once. Files whose names are not resource names are
// skipped.
func NewFolder(dir string) (*Folder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	f := &Folder{Dir: dir, files: make(map[resource.ID]looseFile)}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		base, method := compress.Split(de.Name())
		id, err := resource.ParseFilename(base)
		if err != nil {
			glog.V(2).Infof("provider: skipping %s: %v", de.Name(), err)
			continue
		}
		if prev, ok := f.files[id]; ok && prev.method == compress.None {
			continue
		}
		f.files[id] = looseFile{path: filepath.Join(dir, de.Name()), method: method}
	}
	glog.V(1).Infof("provider: folder %s holds %d resources", dir, len(f.files))
	return f, nil
}

func (f *Folder) Find(id resource.ID) ([]byte, bool, error) {
	lf, ok := f.files[resource.NewID(id.ResRef, id.Type)]
	if !ok {
		return nil, false, nil
	}
	data, err := os.ReadFile(lf.path)
	if err != nil {
		return nil, true, err
	}
	data, err = compress.Decompress(data, lf.method)
	if err != nil {
		return nil, true, errors.WithMessagef(err, "%s", lf.path)
	}
	return data, true, nil
}

func (f *Folder) IDs() []resource.ID {
	out := make([]resource.ID, 0, len(f.files))
	for id := range f.files {
		out = append(out, id)
	}
	resource.SortIDs(out)
	return out
}
