package fileproc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelafacility/backend/internal/services/fileproc"
)

func TestUploadOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/files/upload", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "report.pdf", fh.Filename)
		assert.NotEmpty(t, r.FormValue("metadata"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"filename":"stored_report.pdf","file_path":"/store/stored_report.pdf","file_size":42}`))
	}))
	defer srv.Close()

	client := fileproc.New(srv.URL)
	result, err := client.Upload(context.Background(), "report.pdf", "application/pdf", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "stored_report.pdf", result.Filename)
	assert.Equal(t, "/store/stored_report.pdf", result.FilePath)
	assert.NotEmpty(t, result.Raw)
}

func TestUploadFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := fileproc.New(srv.URL)
	_, err := client.Upload(context.Background(), "a.txt", "text/plain", []byte("x"))
	assert.Error(t, err)
}

func TestUploadConnectionRefused(t *testing.T) {
	client := fileproc.New("http://127.0.0.1:1")
	_, err := client.Upload(context.Background(), "a.txt", "text/plain", []byte("x"))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := fileproc.New(srv.URL)
	require.NoError(t, client.Delete(context.Background(), "abc-123"))
	assert.Equal(t, "/api/files/abc-123", gotPath)

	srv.Close()
	assert.Error(t, client.Delete(context.Background(), "abc-123"))
}
