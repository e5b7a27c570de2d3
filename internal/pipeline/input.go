package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Input is a document source: either a path on the local filesystem or
// a URL to download. The decision is made once at the boundary by
// ResolveInput; everything downstream works with local paths.
type Input interface {
	isInput()
}

// LocalPath is a document already on disk.
type LocalPath string

// RemoteURL is a document to download before processing.
type RemoteURL string

func (LocalPath) isInput() {}
func (RemoteURL) isInput() {}

// ResolveInput classifies a raw document reference. file:// URIs,
// absolute Unix paths and Windows drive paths are local; everything
// else is treated as a URL.
func ResolveInput(raw string) Input {
	if strings.HasPrefix(raw, "file://") {
		return LocalPath(strings.TrimPrefix(raw, "file://"))
	}
	if strings.HasPrefix(raw, "/") {
		return LocalPath(raw)
	}
	if len(raw) >= 3 && raw[1] == ':' && (raw[2] == '/' || raw[2] == '\\') {
		return LocalPath(raw)
	}
	return RemoteURL(raw)
}

// Fetch downloads a remote document into its own temp directory and
// returns the local path plus a cleanup func. The filename comes from
// the last URL segment; anything without a supported extension is
// saved as document.pdf.
func Fetch(ctx context.Context, url RemoteURL) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(url), nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("failed to download document: status %d", resp.StatusCode)
	}

	tempDir, err := os.MkdirTemp("", "policyrag-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	path := filepath.Join(tempDir, filenameFromURL(string(url)))
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write document: %w", err)
	}

	return path, cleanup, nil
}

func filenameFromURL(url string) string {
	name := url
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx":
		return name
	}
	return "document.pdf"
}
