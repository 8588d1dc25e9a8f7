package functions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
)

const apacheDetails = `{
  "name": "Apache License 2.0",
  "licenseText": "Apache License\nVersion 2.0, January 2004\n",
  "crossRef": [
    {"url": "https://opensource.org/licenses/Apache-2.0", "isValid": true, "isLive": true, "order": 1},
    {"url": "http://www.apache.org/licenses/LICENSE-2.0", "isValid": true, "isLive": true, "order": 0},
    {"url": "https://example.invalid/dead", "isValid": true, "isLive": false, "order": 2}
  ]
}`

const numpyMetadata = `{
  "info": {"name": "numpy", "summary": "Fundamental package for array computing"},
  "releases": {
    "1.26.4": [{"yanked": false}],
    "2.0.0": [{"yanked": false}],
    "2.0.1": [{"yanked": true}],
    "2.1.0rc1": [{"yanked": false}],
    "2.1.0": [{"yanked": false}, {"yanked": true}],
    "2.2.0": []
  }
}`

type fakeIndex struct {
	server   *httptest.Server
	requests atomic.Int32
}

func newFakeIndex(t *testing.T) *fakeIndex {
	t.Helper()
	f := &fakeIndex{}
	mux := http.NewServeMux()
	mux.HandleFunc("/spdx/Apache-2.0.json", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		_, _ = w.Write([]byte(apacheDetails))
	})
	mux.HandleFunc("/pypi/numpy/json", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		_, _ = w.Write([]byte(numpyMetadata))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		http.NotFound(w, r)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIndex) library() *functions.Library {
	return functions.New(context.Background(), functions.Options{
		SPDXBaseURL: f.server.URL + "/spdx",
		PyPIBaseURL: f.server.URL + "/pypi",
		Timeout:     5 * time.Second,
		Now:         fixedNow,
	})
}

func TestSPDXLicense(t *testing.T) {
	index := newFakeIndex(t)
	lib := index.library()

	got, err := call(t, lib, "spdx_license", cty.StringVal("Apache-2.0"))
	require.NoError(t, err)
	rec := got.(map[string]any)
	assert.Equal(t, "Apache License 2.0", rec["name"])
	assert.Equal(t, "Apache-2.0", rec["spdx_id"])
	assert.Equal(t, "https://spdx.org/licenses/Apache-2.0.html", rec["uri"])
	assert.Equal(t, "SPDX-License-Identifier: Apache-2.0", rec["header"])
	assert.Equal(t, []any{
		"https://www.apache.org/licenses/LICENSE-2.0",
		"https://opensource.org/licenses/Apache-2.0",
	}, rec["links"])

	_, err = call(t, lib, "spdx_license", cty.StringVal("Apache-2.0"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), index.requests.Load(), "second lookup is served from cache")
}

func TestSPDXLicense_NotFound(t *testing.T) {
	lib := newFakeIndex(t).library()

	_, err := call(t, lib, "spdx_license", cty.StringVal("No-Such-License"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrHTTP))
	assert.Equal(t, "spdx_license", errors.GetErrorDetails(err)["function"])
}

func TestPyPIVersions(t *testing.T) {
	lib := newFakeIndex(t).library()

	got, err := call(t, lib, "pypi_versions", cty.StringVal("numpy"))
	require.NoError(t, err)
	assert.Equal(t, []any{"1.26.4", "2.0.0", "2.1.0rc1", "2.1.0"}, got)

	got, err = call(t, lib, "pep440_find_for_spec", cty.StringVal("numpy>=2"))
	require.NoError(t, err)
	assert.Equal(t, []any{"2.0.0", "2.1.0"}, got)

	got, err = call(t, lib, "pep440_find_for_spec", cty.StringVal("numpy"))
	require.NoError(t, err)
	assert.Equal(t, []any{"1.26.4", "2.0.0", "2.1.0"}, got)
}

func TestPyPIData(t *testing.T) {
	lib := newFakeIndex(t).library()

	got, err := call(t, lib, "pypi_data", cty.StringVal("numpy"))
	require.NoError(t, err)
	info := got.(map[string]any)["info"].(map[string]any)
	assert.Equal(t, "numpy", info["name"])

	_, err = call(t, lib, "pypi_data", cty.StringVal("missing-package"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrHTTP))
}

func TestClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tyranno-test", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := functions.NewClient(time.Second, "tyranno-test")
	_, err := client.GetJSON(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrHTTP))
	assert.Equal(t, http.StatusServiceUnavailable, errors.GetErrorDetails(err)["status"])
}
