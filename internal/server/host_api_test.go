package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdchan/TerminalOne/internal/hostfs"
	"github.com/vincentdchan/TerminalOne/terminal"
)

func getPath(t *testing.T, base, endpoint, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(base + endpoint + "?path=" + url.QueryEscape(path))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_ExecRunsCommand(t *testing.T) {
	_, httpSrv := newTestServer(t, "-c", "cat")
	dir := t.TempDir()

	body, err := json.Marshal(terminal.CommandRequest{
		Command:    "/bin/sh",
		Args:       []string{"-c", `printf '%s' "$T1_VALUE"; exit 2`},
		WorkingDir: dir,
		Env:        map[string]string{"T1_VALUE": "from-env"},
	})
	require.NoError(t, err)

	resp := postJSON(t, httpSrv.URL+"/api/exec", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result terminal.CommandResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "from-env", result.Output)
	assert.False(t, result.Success)
	require.NotNil(t, result.Code)
	assert.Equal(t, 2, *result.Code)
}

func TestServer_ExecErrors(t *testing.T) {
	_, httpSrv := newTestServer(t, "-c", "cat")

	resp := postJSON(t, httpSrv.URL+"/api/exec", `{"command":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, httpSrv.URL+"/api/exec", `{"command":"/definitely/missing/binary"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, httpSrv.URL+"/api/exec", `{"program":"ls"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_FSEndpoints(t *testing.T) {
	_, httpSrv := newTestServer(t, "-c", "cat")
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("remember"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	resp := getPath(t, httpSrv.URL, "/api/fs/ls", dir)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing fsListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Equal(t, []hostfs.Entry{
		{Filename: "notes.txt", Path: file},
		{Filename: "sub", IsDir: true, Path: filepath.Join(dir, "sub")},
	}, listing.Content)

	resp = getPath(t, httpSrv.URL, "/api/fs/read", file)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var read fsReadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&read))
	assert.Equal(t, "remember", read.Content)

	resp = getPath(t, httpSrv.URL, "/api/fs/stat", file)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var times hostfs.Times
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&times))
	assert.Positive(t, times.ModifiedTime)

	resp = postJSON(t, httpSrv.URL+"/api/fs/test", `{"currentDir":"`+dir+`","files":["sub","notes.txt","gone"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tested fsTestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tested))
	assert.Equal(t, []hostfs.Kind{hostfs.Directory, hostfs.File, hostfs.Missing}, tested.Files)
}

func TestServer_FSErrors(t *testing.T) {
	_, httpSrv := newTestServer(t, "-c", "cat")
	missing := filepath.Join(t.TempDir(), "missing")

	for _, endpoint := range []string{"/api/fs/ls", "/api/fs/read", "/api/fs/stat"} {
		assert.Equal(t, http.StatusNotFound, getPath(t, httpSrv.URL, endpoint, missing).StatusCode, endpoint)
	}

	resp, err := http.Get(httpSrv.URL + "/api/fs/ls")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, httpSrv.URL+"/api/fs/stat", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
