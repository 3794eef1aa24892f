// Package compress handles the compressed loose files an override folder
// may hold next to plain ones: name.ext.lz4, name.ext.zst and name.ext.zz.
package compress

import (
	"bytes"
	"compress/zlib"
	"io"
	"path/filepath"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/yoremi/kotor-go/pkg/codec"
)

// Method is a compression scheme.
type Method int

const (
	None Method = iota
	Zlib
	LZ4
	Zstd
)

var extensions = map[Method]string{
	Zlib: ".zz",
	LZ4:  ".lz4",
	Zstd: ".zst",
}

func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	}
	return "unknown"
}

// ParseMethod returns the method named by s, as printed by String.
func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{None, Zlib, LZ4, Zstd} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return None, codec.Validationf("unknown compression method %q", s)
}

// Extension returns the file suffix for m, empty for None.
func (m Method) Extension() string { return extensions[m] }

// Methods lists the compressed schemes in lookup order.
func Methods() []Method { return []Method{LZ4, Zstd, Zlib} }

// Split strips a compression suffix from name. A name without one comes
// back unchanged with None.
func Split(name string) (string, Method) {
	ext := strings.ToLower(filepath.Ext(name))
	for m, e := range extensions {
		if ext == e {
			return name[:len(name)-len(ext)], m
		}
	}
	return name, None
}

// Decompress expands data. LZ4 data is a frame, not a raw block.
func Decompress(data []byte, m Method) ([]byte, error) {
	switch m {
	case None:
		return data, nil
	case Zlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, codec.Formatf("zlib: %v", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, codec.Formatf("zlib: %v", err)
		}
		return out, nil
	case LZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, codec.Formatf("lz4: %v", err)
		}
		return out, nil
	case Zstd:
		out, err := zstd.Decompress(nil, data)
		if err != nil {
			return nil, codec.Formatf("zstd: %v", err)
		}
		return out, nil
	}
	return nil, codec.Formatf("unsupported compression method %d", int(m))
}

// Compress packs data with m.
func Compress(data []byte, m Method) ([]byte, error) {
	var buf bytes.Buffer
	switch m {
	case None:
		return data, nil
	case Zlib:
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case LZ4:
		lw := lz4.NewWriter(&buf)
		if _, err := lw.Write(data); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
	case Zstd:
		return zstd.Compress(nil, data)
	default:
		return nil, codec.Validationf("unsupported compression method %d", int(m))
	}
	return buf.Bytes(), nil
}
