package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/resource"
)

type memProvider map[resource.ID][]byte

func (m memProvider) Find(id resource.ID) ([]byte, bool, error) {
	data, ok := m[resource.NewID(id.ResRef, id.Type)]
	return data, ok, nil
}

func (m memProvider) IDs() []resource.ID {
	var out []resource.ID
	for id := range m {
		out = append(out, id)
	}
	resource.SortIDs(out)
	return out
}

type brokenProvider struct{}

func (brokenProvider) Find(resource.ID) ([]byte, bool, error) {
	return nil, true, errors.New("bif: entry 3 lies outside the file")
}

func testRouter() *mux.Router {
	return New(memProvider{
		resource.NewID("appearance", resource.Type2DA):  []byte("2DA V2.b\n"),
		resource.NewID("k_ai_master", resource.TypeNCS): []byte("NCS V1.0B"),
	}).Router()
}

func TestGetResource(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest("GET", "/resources/Appearance.2DA", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2DA V2.b\n", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "appearance.2da")
}

func TestHeadResource(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest("HEAD", "/resources/k_ai_master.ncs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Header().Get("Content-Length"))
	assert.Zero(t, w.Body.Len())
}

func TestGetResourceErrors(t *testing.T) {
	cases := map[string]int{
		"/resources/missing.utc":               http.StatusNotFound,
		"/resources/appearance.xyz":            http.StatusBadRequest,
		"/resources/a_resref_far_too_long.utc": http.StatusBadRequest,
		"/resources/noextension":               http.StatusNotFound,
	}
	r := testRouter()
	for path, want := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestProviderError(t *testing.T) {
	r := New(brokenProvider{}).Router()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/resources/p_bastila.utc", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body jsonError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "outside the file")
}

func TestListResources(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/resources", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []listedResource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "appearance", got[0].ResRef)
	assert.Equal(t, "2da", got[0].Type)
	assert.Equal(t, "k_ai_master.ncs", got[1].File)
}

func TestListUnsupported(t *testing.T) {
	r := New(brokenProvider{}).Router()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/resources", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
