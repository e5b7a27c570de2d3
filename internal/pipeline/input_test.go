package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInput(t *testing.T) {
	tests := []struct {
		raw  string
		want Input
	}{
		{"file:///tmp/policy.pdf", LocalPath("/tmp/policy.pdf")},
		{"/var/docs/policy.pdf", LocalPath("/var/docs/policy.pdf")},
		{"C:/docs/policy.pdf", LocalPath("C:/docs/policy.pdf")},
		{`D:\docs\policy.pdf`, LocalPath(`D:\docs\policy.pdf`)},
		{"https://example.com/policy.pdf", RemoteURL("https://example.com/policy.pdf")},
		{"http://example.com/policy.pdf?sig=abc", RemoteURL("http://example.com/policy.pdf?sig=abc")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveInput(tt.raw), tt.raw)
	}
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/docs/policy.pdf", "policy.pdf"},
		{"https://example.com/docs/policy.pdf?sig=abc&exp=1", "policy.pdf"},
		{"https://example.com/docs/contract.docx", "contract.docx"},
		{"https://example.com/download?id=42", "document.pdf"},
		{"https://example.com/docs/readme.txt", "document.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filenameFromURL(tt.url), tt.url)
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdf bytes"))
	}))
	defer server.Close()

	path, cleanup, err := Fetch(context.Background(), RemoteURL(server.URL+"/policy.pdf"))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "policy.pdf", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, _, err := Fetch(context.Background(), RemoteURL(server.URL+"/missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
