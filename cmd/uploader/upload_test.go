package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T, existing map[string]bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/exists", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{
			"exists": existing[filepath.Base(r.URL.Query().Get("file_path"))],
		})
	})
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		var buf bytes.Buffer
		n, _ := buf.ReadFrom(f)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "1", "filename": fh.Filename, "mimetype": "application/pdf", "size": n, "path": "uploads/x.pdf",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestUploadCmd(t *testing.T) {
	srv := newStubServer(t, map[string]bool{"old.pdf": true})
	dir := t.TempDir()

	fresh := filepath.Join(dir, "new.pdf")
	old := filepath.Join(dir, "old.pdf")
	require.NoError(t, os.WriteFile(fresh, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(old, []byte("%PDF-1.4"), 0o644))

	t.Run("single file", func(t *testing.T) {
		out, err := run(t, "upload", "--endpoint", srv.URL+"/api", fresh)
		require.NoError(t, err)
		assert.Equal(t, "File uploaded successfully.\n", out)
	})

	t.Run("existing file fails", func(t *testing.T) {
		out, err := run(t, "upload", "--endpoint", srv.URL+"/api", old)
		assert.True(t, errors.Is(err, errSilent))
		assert.Equal(t, "Error: File already exists on the server.\n", out)
	})

	t.Run("batch json", func(t *testing.T) {
		out, err := run(t, "upload", "-e", srv.URL+"/api", "--json", fresh, old)
		assert.ErrorIs(t, err, errSilent)

		var results []resultJSON
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.Len(t, results, 2)
		assert.Equal(t, "success", results[0].Status)
		assert.Equal(t, "already_exists", results[1].Status)
	})
}

func TestUploadCmd_RequiresArgs(t *testing.T) {
	_, err := run(t, "upload")
	assert.Error(t, err)
}

func TestCheckCmd(t *testing.T) {
	srv := newStubServer(t, map[string]bool{"old.pdf": true})

	out, err := run(t, "check", "-e", srv.URL+"/api", "/somewhere/old.pdf")
	require.NoError(t, err)
	assert.Equal(t, "exists\n", out)

	out, err = run(t, "check", "-e", srv.URL+"/api", "other.pdf")
	require.NoError(t, err)
	assert.Equal(t, "not found\n", out)
}
