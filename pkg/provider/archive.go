package provider

import (
	"path/filepath"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/erf"
	"github.com/yoremi/kotor-go/pkg/rim"
)

// NewErf opens an ERF, MOD or SAV file as a provider.
func NewErf(path string) (*Directory, error) {
	a, err := erf.OpenFile(path)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("provider: %s %s holds %d resources", a.Kind, filepath.Base(path), a.Len())
	return NewDirectory(path, a.Directory), nil
}

// NewRim opens a RIM file as a provider.
func NewRim(path string) (*Directory, error) {
	a, err := rim.OpenFile(path)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("provider: rim %s holds %d resources", filepath.Base(path), a.Len())
	return NewDirectory(path, a.Directory), nil
}
