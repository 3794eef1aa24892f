package resource

import (
	"io"

	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
)

// Directory is the cached table of contents of an opened archive plus the
// stream its payloads live in. It is immutable once built, so lookups may
// run concurrently.
type Directory struct {
	format  string
	entries []Entry
	index   map[ID]int
	data    *binarray.RangeReader
	closer  io.Closer
}

// NewDirectory indexes entries over r. format prefixes error messages.
// Duplicate ids and payload ranges outside the stream are format errors.
func NewDirectory(format string, entries []Entry, r io.ReadSeeker) (*Directory, error) {
	data, err := binarray.NewRangeReader(r)
	if err != nil {
		return nil, codec.IOError(err, "%s", format)
	}
	d := &Directory{
		format:  format,
		entries: entries,
		index:   make(map[ID]int, len(entries)),
		data:    data,
	}
	for i, e := range entries {
		if _, dup := d.index[e.ID]; dup {
			return nil, codec.Formatf("%s: duplicate resource %s", format, e.ID)
		}
		d.index[e.ID] = i
		if !data.Contains(int64(e.Offset), int64(e.Size)) {
			return nil, codec.Formatf("%s: %s at 0x%x+%d lies outside the archive", format, e.ID, e.Offset, e.Size)
		}
	}
	return d, nil
}

// SetCloser hands ownership of the underlying file to the directory.
func (d *Directory) SetCloser(c io.Closer) { d.closer = c }

// Close releases the underlying file, if the directory owns one.
func (d *Directory) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// Len returns the number of resources.
func (d *Directory) Len() int { return len(d.entries) }

// Resources returns the entries in archive order.
func (d *Directory) Resources() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// IDs returns the resource ids in archive order.
func (d *Directory) IDs() []ID {
	out := make([]ID, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.ID
	}
	return out
}

// Has reports whether id is present. Names match case-insensitively.
func (d *Directory) Has(id ID) bool {
	_, ok := d.index[NewID(id.ResRef, id.Type)]
	return ok
}

// Entry returns the directory entry for id.
func (d *Directory) Entry(id ID) (Entry, bool) {
	i, ok := d.index[NewID(id.ResRef, id.Type)]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Read fetches one payload into a fresh buffer.
func (d *Directory) Read(id ID) ([]byte, error) {
	e, ok := d.Entry(id)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s: %s", d.format, id)
	}
	return d.ReadEntry(e)
}

// ReadEntry fetches the payload of a known entry.
func (d *Directory) ReadEntry(e Entry) ([]byte, error) {
	data, err := d.data.ReadRange(int64(e.Offset), int64(e.Size))
	if err != nil {
		return nil, codec.IOError(err, "%s: %s", d.format, e.ID)
	}
	return data, nil
}

// CheckUnique validates a resource list before it is written: every id
// must fit a directory and appear once.
func CheckUnique(format string, resources []Resource) error {
	seen := make(map[ID]bool, len(resources))
	for _, res := range resources {
		id := NewID(res.ID.ResRef, res.ID.Type)
		if err := id.Validate(); err != nil {
			return codec.Validationf("%s: %v", format, err)
		}
		if seen[id] {
			return codec.Validationf("%s: duplicate resource %s", format, id)
		}
		seen[id] = true
	}
	return nil
}
