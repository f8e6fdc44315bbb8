// Package staging writes CLI artifacts into a per-run staging directory and
// publishes them only when the whole run succeeded.
package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Downloader fetches a URL into a writer.
type Downloader interface {
	DownloadFile(ctx context.Context, url string, dest io.Writer) (int64, error)
}

type Manager struct {
	baseDir     string
	stagingRoot string
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:     baseDir,
		stagingRoot: filepath.Join(baseDir, ".staging"),
	}
}

func (m *Manager) FinalDir(run string) string {
	return filepath.Join(m.baseDir, run)
}

func (m *Manager) StagingRoot() string {
	return m.stagingRoot
}

func (m *Manager) StagingDir(run string) string {
	return filepath.Join(m.stagingRoot, run)
}

func (m *Manager) PrepareStaging(run string) error {
	return os.MkdirAll(m.StagingDir(run), 0750)
}

// WriteToStaging writes one artifact through a temp file and renames it into
// place, so a failed writer never leaves a partial file behind.
func (m *Manager) WriteToStaging(run, name string, write func(w io.Writer) error) (string, error) {
	destPath := filepath.Join(m.StagingDir(run), name)
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return "", fmt.Errorf("creating directories: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	err = write(f)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	return destPath, nil
}

// DownloadToStaging saves the body at url as name within the run.
func (m *Manager) DownloadToStaging(ctx context.Context, client Downloader, run, name, url string) (int64, error) {
	var size int64
	_, err := m.WriteToStaging(run, name, func(w io.Writer) error {
		n, err := client.DownloadFile(ctx, url, w)
		size = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// CommitStaging moves every staged file of the run into the final directory.
func (m *Manager) CommitStaging(run string) error {
	stagingDir := m.StagingDir(run)
	finalDir := m.FinalDir(run)

	return filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(finalDir, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
			return err
		}

		return os.Rename(path, destPath)
	})
}

func (m *Manager) CleanupStaging(run string) error {
	return os.RemoveAll(m.StagingDir(run))
}
