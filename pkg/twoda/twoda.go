// Package twoda reads and writes 2DA V2.b tables: string grids with named
// columns, labelled rows and an offset-addressed pool of unique cell values.
package twoda

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
)

// Signature opens every binary 2DA file.
const Signature = "2DA V2.b\n"

// BlankOffset marks a cell with no value, which is distinct from an empty
// string.
const BlankOffset = 0xFFFF

// Cell is one table value.
type Cell struct {
	Value string
	Blank bool
}

// Row is one labelled table row.
type Row struct {
	Label string
	Cells []Cell
}

// Table is a decoded 2DA.
type Table struct {
	Columns []string
	Rows    []Row
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Get returns the cell at row, column name. Blank cells and unknown
// columns report false.
func (t *Table) Get(row int, column string) (string, bool) {
	col := t.ColumnIndex(column)
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	c := t.Rows[row].Cells[col]
	return c.Value, !c.Blank
}

// Int parses a cell as a decimal integer.
func (t *Table) Int(row int, column string) (int, bool) {
	s, ok := t.Get(row, column)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// AddRow appends a row labelled by its index. A value of "" is stored as
// an empty string; use Cell{Blank: true} through Rows for blank cells.
func (t *Table) AddRow(values ...string) {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Value: v}
	}
	t.Rows = append(t.Rows, Row{Label: strconv.Itoa(len(t.Rows)), Cells: cells})
}

// Validate checks that every row has one cell per column.
func (t *Table) Validate() error {
	for i, r := range t.Rows {
		if len(r.Cells) != len(t.Columns) {
			return codec.Validationf("2da: row %d has %d cells, want %d", i, len(r.Cells), len(t.Columns))
		}
	}
	for _, c := range t.Columns {
		if strings.ContainsAny(c, "\t\x00") {
			return codec.Validationf("2da: column name %q contains a separator", c)
		}
	}
	return nil
}

// Read decodes a 2DA table. A failed read returns no table.
func Read(r io.ReadSeeker) (*Table, error) {
	br := binarray.NewReader(r, binary.LittleEndian)
	sig, ok, err := br.ReadSignature(Signature)
	if err != nil {
		return nil, codec.IOError(err, "2da: failed to read signature")
	}
	if !ok {
		return nil, codec.Formatf("2da: bad signature %q", sig)
	}

	head, err := readUntil(br, 0)
	if err != nil {
		return nil, codec.IOError(err, "2da: column names")
	}
	t := &Table{}
	if len(head) > 0 {
		t.Columns = strings.Split(strings.TrimSuffix(head, "\t"), "\t")
	}

	rowCount, err := br.ReadU32()
	if err != nil {
		return nil, codec.IOError(err, "2da: row count")
	}
	cellCount := uint64(rowCount) * uint64(len(t.Columns))
	if rem := br.Remaining(); rem >= 0 && cellCount*2 > uint64(rem) {
		return nil, codec.Formatf("2da: %d rows x %d columns exceed file size", rowCount, len(t.Columns))
	}

	labels := make([]string, rowCount)
	for i := range labels {
		if labels[i], err = readUntil(br, '\t'); err != nil {
			return nil, codec.IOError(err, "2da: row label %d", i)
		}
	}

	offsets := make([]uint16, cellCount)
	for i := range offsets {
		if offsets[i], err = br.ReadU16(); err != nil {
			return nil, codec.IOError(err, "2da: cell offsets")
		}
	}
	dataSize, err := br.ReadU16()
	if err != nil {
		return nil, codec.IOError(err, "2da: data size")
	}
	pool, err := br.ReadBytes(int(dataSize))
	if err != nil {
		return nil, codec.IOError(err, "2da: string pool")
	}

	cols := len(t.Columns)
	t.Rows = make([]Row, rowCount)
	for i := range t.Rows {
		row := Row{Label: labels[i], Cells: make([]Cell, cols)}
		for j := 0; j < cols; j++ {
			off := offsets[i*cols+j]
			if off == BlankOffset {
				row.Cells[j] = Cell{Blank: true}
				continue
			}
			if int(off) >= len(pool) {
				return nil, codec.Formatf("2da: cell (%d,%d) offset 0x%x outside pool of %d bytes", i, j, off, len(pool))
			}
			row.Cells[j] = Cell{Value: cstring(pool[off:])}
		}
		t.Rows[i] = row
	}
	glog.V(2).Infof("2da: read %d columns x %d rows, pool %d bytes", cols, rowCount, dataSize)
	return t, nil
}

func readUntil(br *binarray.Reader, delim byte) (string, error) {
	var out []byte
	for {
		b, err := br.ReadU8()
		if err != nil {
			return "", err
		}
		if b == delim {
			return string(out), nil
		}
		out = append(out, b)
	}
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// Write encodes t. Identical cell values share one pool entry; the first
// occurrence in row-major order decides its offset.
func Write(w io.Writer, t *Table) error {
	if t == nil {
		return codec.Validationf("2da: nil table")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	var pool bytes.Buffer
	interned := make(map[string]uint16)
	offsets := make([]uint16, 0, len(t.Rows)*len(t.Columns))
	for i, r := range t.Rows {
		for j, c := range r.Cells {
			if c.Blank {
				offsets = append(offsets, BlankOffset)
				continue
			}
			off, ok := interned[c.Value]
			if !ok {
				if strings.IndexByte(c.Value, 0) >= 0 {
					return codec.Validationf("2da: cell (%d,%d) contains NUL", i, j)
				}
				if pool.Len() >= BlankOffset {
					return codec.Validationf("2da: string pool exceeds %d bytes", BlankOffset)
				}
				off = uint16(pool.Len())
				interned[c.Value] = off
				pool.WriteString(c.Value)
				pool.WriteByte(0)
			}
			offsets = append(offsets, off)
		}
	}
	if pool.Len() > 0xFFFF {
		return codec.Validationf("2da: string pool of %d bytes does not fit", pool.Len())
	}

	bw := binarray.NewWriter(w, binary.LittleEndian)
	var head strings.Builder
	head.WriteString(Signature)
	for _, c := range t.Columns {
		head.WriteString(c)
		head.WriteByte('\t')
	}
	head.WriteByte(0)
	if err := bw.WriteBytes([]byte(head.String())); err != nil {
		return codec.IOError(err, "2da: header")
	}
	if err := bw.WriteU32(uint32(len(t.Rows))); err != nil {
		return codec.IOError(err, "2da: row count")
	}
	for i, r := range t.Rows {
		label := r.Label
		if label == "" {
			label = strconv.Itoa(i)
		}
		if strings.ContainsAny(label, "\t\x00") {
			return codec.Validationf("2da: row label %q contains a separator", label)
		}
		if err := bw.WriteBytes([]byte(label + "\t")); err != nil {
			return codec.IOError(err, "2da: row labels")
		}
	}
	for _, off := range offsets {
		if err := bw.WriteU16(off); err != nil {
			return codec.IOError(err, "2da: cell offsets")
		}
	}
	if err := bw.WriteU16(uint16(pool.Len())); err != nil {
		return codec.IOError(err, "2da: data size")
	}
	if err := bw.WriteBytes(pool.Bytes()); err != nil {
		return codec.IOError(err, "2da: string pool")
	}
	glog.V(2).Infof("2da: wrote %d columns x %d rows, %d pooled strings", len(t.Columns), len(t.Rows), len(interned))
	return nil
}
