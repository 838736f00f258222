package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Store struct {
	dir          string
	baseURL      string
	autoDownload bool
	client       *http.Client

	mu sync.Mutex
}

func NewStore(dir string, autoDownload bool) *Store {
	return &Store{
		dir:          dir,
		baseURL:      DefaultBaseURL,
		autoDownload: autoDownload,
		client:       http.DefaultClient,
	}
}

// WithBaseURL points downloads at a mirror.
func (s *Store) WithBaseURL(baseURL string) *Store {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Resolve turns a model identifier into a local weights path. Paths and
// explicit .bin files are used as given; registry names live in the store
// directory and are fetched on demand.
func (s *Store) Resolve(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("empty model identifier")
	}

	if isPath(id) {
		if _, err := os.Stat(id); err != nil {
			return "", fmt.Errorf("model file %s: %w", id, err)
		}
		return id, nil
	}

	info, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("unknown model %q", id)
	}

	path := filepath.Join(s.dir, info.Filename())
	if exists(path) {
		return path, nil
	}
	if !s.autoDownload {
		return "", fmt.Errorf("model %s is not present at %s and auto download is disabled", id, path)
	}

	if err := s.download(ctx, info, path); err != nil {
		return "", fmt.Errorf("downloading model %s: %w", id, err)
	}
	return path, nil
}

func (s *Store) download(ctx context.Context, info Info, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exists(path) {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	url := s.baseURL + "/" + info.Filename()
	slog.InfoContext(ctx, "Downloading model", "model", info.Name, "size", info.Size, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmpPath := path + ".tmp"
	defer os.Remove(tmpPath)

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if n == 0 {
		return errors.New("empty response body")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}

	slog.InfoContext(ctx, "Model downloaded", "model", info.Name, "path", path, "bytes", n)

	return nil
}

func isPath(id string) bool {
	return strings.HasSuffix(id, ".bin") || strings.ContainsRune(id, os.PathSeparator) || strings.Contains(id, "/")
}

func exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir() && st.Size() > 0
}
