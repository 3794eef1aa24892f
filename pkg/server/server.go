// Package server exposes a resource provider over read-only HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/yoremi/kotor-go/pkg/provider"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// Server answers resource lookups. The provider must be fully opened
// before the server is built; handlers only read from it.
type Server struct {
	p provider.Provider
}

// New returns a server over p.
func New(p provider.Provider) *Server {
	return &Server{p: p}
}

type jsonError struct {
	Error string `json:"error"`
}

type listedResource struct {
	ResRef string `json:"resref"`
	Type   string `json:"type"`
	File   string `json:"file"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonError{Error: msg})
}

// Router returns the routes:
//
//	GET /resources                 list every id, when the provider can list
//	GET /resources/{resref}.{ext}  the raw payload
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/resources", s.listResources).Methods("GET")
	r.HandleFunc("/resources/{resref:[^/.]+}.{ext:[A-Za-z0-9]+}", s.getResource).Methods("GET", "HEAD")
	return r
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	l, ok := s.p.(provider.Lister)
	if !ok {
		writeJSONError(w, http.StatusNotImplemented, "provider cannot list its resources")
		return
	}
	ids := l.IDs()
	out := make([]listedResource, len(ids))
	for i, id := range ids {
		out[i] = listedResource{ResRef: id.ResRef, Type: id.Type.Extension(), File: id.Filename()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, ok := resource.TypeFromExtension(vars["ext"])
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "unknown resource type "+vars["ext"])
		return
	}
	id := resource.NewID(vars["resref"], t)
	if err := id.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, found, err := s.p.Find(id)
	if err != nil {
		glog.Warningf("server: %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, id.Filename()+" not found")
		return
	}
	glog.V(2).Infof("server: %s %s (%d bytes)", r.Method, id, len(data))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+id.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	glog.Infof("server: listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		return nil
	}
}
