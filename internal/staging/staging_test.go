package staging

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type mockClient struct {
	data []byte
	err  error
}

func (m *mockClient) DownloadFile(ctx context.Context, url string, dest io.Writer) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	n, err := dest.Write(m.data)
	return int64(n), err
}

func TestStagingManager(t *testing.T) {
	tmpDir := t.TempDir()
	run := "2026-10-19"

	mgr := NewManager(tmpDir)

	if mgr.FinalDir(run) != filepath.Join(tmpDir, run) {
		t.Errorf("unexpected FinalDir %s", mgr.FinalDir(run))
	}

	expectedStaging := filepath.Join(tmpDir, ".staging", run)
	if mgr.StagingDir(run) != expectedStaging {
		t.Errorf("expected StagingDir %s, got %s", expectedStaging, mgr.StagingDir(run))
	}

	if err := mgr.PrepareStaging(run); err != nil {
		t.Fatalf("PrepareStaging failed: %v", err)
	}
	if _, err := os.Stat(expectedStaging); os.IsNotExist(err) {
		t.Error("staging directory not created")
	}

	client := &mockClient{data: []byte("<html><table></table></html>")}
	size, err := mgr.DownloadToStaging(context.Background(), client, run, "source.html", "https://example.com/list")
	if err != nil {
		t.Fatalf("DownloadToStaging failed: %v", err)
	}
	if size != int64(len(client.data)) {
		t.Errorf("expected size %d, got %d", len(client.data), size)
	}

	csvPath, err := mgr.WriteToStaging(run, "SP500.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "Symbol,Sector\nA,X\n")
		return err
	})
	if err != nil {
		t.Fatalf("WriteToStaging failed: %v", err)
	}
	if _, err := os.Stat(csvPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after successful write")
	}

	if err := mgr.CommitStaging(run); err != nil {
		t.Fatalf("CommitStaging failed: %v", err)
	}

	for _, name := range []string{"source.html", "SP500.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, run, name)); os.IsNotExist(err) {
			t.Errorf("%s not moved to final directory", name)
		}
	}

	if err := mgr.CleanupStaging(run); err != nil {
		t.Fatalf("CleanupStaging failed: %v", err)
	}
	if _, err := os.Stat(mgr.StagingDir(run)); !os.IsNotExist(err) {
		t.Error("staging directory should be removed after cleanup")
	}
}

func TestWriteToStagingFailure(t *testing.T) {
	mgr := NewManager(t.TempDir())
	run := "failed"

	_, err := mgr.DownloadToStaging(context.Background(), &mockClient{err: errors.New("status 503")}, run, "source.html", "https://example.com")
	if err == nil {
		t.Fatal("expected error")
	}

	dest := filepath.Join(mgr.StagingDir(run), "source.html")
	for _, p := range []string{dest, dest + ".tmp"} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after a failed write", p)
		}
	}
}
