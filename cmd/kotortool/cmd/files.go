package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/yoremi/kotor-go/pkg/batch"
	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/compress"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// saveAtomic writes through a temporary file next to path and renames it
// into place only once write succeeds.
func saveAtomic(path string, write func(w io.Writer) error) error {
	tmpName := path + ".tmp"
	f, err := os.Create(tmpName)
	if err != nil {
		return errors.Wrap(err, "cannot create temp file")
	}
	defer func() {
		f.Close()
		os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "cannot rename temp file")
	}
	return nil
}

// readResources loads loose files as archive members, named after the
// files themselves.
func readResources(files []string) ([]resource.Resource, error) {
	out := make([]resource.Resource, 0, len(files))
	for _, name := range files {
		id, err := resource.ParseFilename(name)
		if err != nil {
			return nil, codec.Validationf("%v", err)
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, resource.Resource{ID: id, Data: data})
	}
	return out, nil
}

// selectIDs returns the ids named on the command line, or all of them.
func selectIDs(all []resource.ID, names []string) ([]resource.ID, error) {
	if len(names) == 0 {
		return all, nil
	}
	out := make([]resource.ID, 0, len(names))
	for _, n := range names {
		id, err := resource.ParseFilename(n)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// extractMethod is shared by every extract command.
var extractMethod string

func addCompressFlag(c *cobra.Command) {
	c.Flags().StringVar(&extractMethod, "compress", compress.None.String(),
		"compress extracted files: none, zlib, lz4 or zstd")
}

// extract writes each id to outDir through a bounded worker pool and
// prints a summary. A failed member does not stop the others. With a
// compression method set, files get its extension and load back through an
// override folder.
func extract(ctx context.Context, out io.Writer, ids []resource.ID, outDir string, read func(resource.ID) ([]byte, error)) error {
	method, err := compress.ParseMethod(extractMethod)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	byName := make(map[string]resource.ID, len(ids))
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Filename()
		byName[names[i]] = id
	}
	rp := batch.Run(ctx, cfg.Workers, names, func(_ context.Context, name string) (int, error) {
		data, err := read(byName[name])
		if err != nil {
			return 0, err
		}
		packed, err := compress.Compress(data, method)
		if err != nil {
			return 0, errors.Wrapf(err, "%s", method)
		}
		return len(data), os.WriteFile(filepath.Join(outDir, name+method.Extension()), packed, 0o644)
	})
	for _, r := range rp.Results {
		if r.OK() {
			glog.V(1).Infof("%s: %d bytes", r.Name, r.Value)
		}
	}
	fmt.Fprint(out, rp.Summary())
	if n := len(rp.Failed()); n > 0 {
		return fmt.Errorf("%d of %d resources failed", n, len(ids))
	}
	return nil
}

// replaceExt swaps the extension of name, optionally moving it to dir.
func replaceExt(name, ext, dir string) string {
	base := name[:len(name)-len(filepath.Ext(name))] + ext
	if dir == "" {
		return base
	}
	return filepath.Join(dir, filepath.Base(base))
}
