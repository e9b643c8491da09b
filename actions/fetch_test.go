package actions

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher(apiURL, archiveURL string) *Fetcher {
	return &Fetcher{
		Client:  &http.Client{},
		APIBase: apiURL,
		Archive: archiveURL,
		Repo:    "mtpanel/mtpanel",
		Branch:  "main",
	}
}

func TestAcquirePrefersTaggedRelease(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/mtpanel/mtpanel/releases/latest", r.URL.Path)
		fmt.Fprint(w, `{"tag_name": "v1.4.0"}`)
	}))
	defer api.Close()

	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mtpanel/mtpanel/archive/refs/tags/v1.4.0.tar.gz", r.URL.Path)
		w.Write([]byte("tarball-bytes"))
	}))
	defer archive.Close()

	path, ref, err := testFetcher(api.URL, archive.URL).Acquire("stable", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", ref)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tarball-bytes", string(content))
}

func TestAcquireFallsBackToBranchWhenNoRelease(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()

	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mtpanel/mtpanel/archive/refs/heads/main.tar.gz", r.URL.Path)
		w.Write([]byte("branch-bytes"))
	}))
	defer archive.Close()

	_, ref, err := testFetcher(api.URL, archive.URL).Acquire("stable", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "main", ref)
}

func TestAcquireFallsBackWhenTagDownloadFails(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v1.4.0"}`)
	}))
	defer api.Close()

	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/tags/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("branch-bytes"))
	}))
	defer archive.Close()

	_, ref, err := testFetcher(api.URL, archive.URL).Acquire("stable", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "main", ref)
}

func TestAcquireMainChannelSkipsReleases(t *testing.T) {
	apiHits := 0
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiHits++
	}))
	defer api.Close()

	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("branch-bytes"))
	}))
	defer archive.Close()

	_, ref, err := testFetcher(api.URL, archive.URL).Acquire("main", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "main", ref)
	assert.Zero(t, apiHits, "the main channel must never consult the release API")
}

func TestAcquireTotalFailure(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()
	archive := httptest.NewServer(http.NotFoundHandler())
	defer archive.Close()

	_, _, err := testFetcher(api.URL, archive.URL).Acquire("stable", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to fetch the artifact set")
}
