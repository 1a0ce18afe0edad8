package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeDownloader struct {
	content []byte
	err     error
}

func (d *fakeDownloader) DownloadToFile(ctx context.Context, objectKey, localPath string) error {
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(localPath, d.content, 0o644)
}

func TestWithTempDownload(t *testing.T) {
	downloader := &fakeDownloader{content: []byte("video bytes")}

	var seenPath string
	err := WithTempDownload(context.Background(), downloader, "raw/abc.mp4", func(localPath string) error {
		seenPath = localPath
		data, err := os.ReadFile(localPath)
		if err != nil {
			return err
		}
		if string(data) != "video bytes" {
			t.Fatalf("unexpected file content %q", data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTempDownload returned error: %v", err)
	}

	if filepath.Ext(seenPath) != ".mp4" {
		t.Fatalf("extension must be preserved, got %s", seenPath)
	}
	if _, err := os.Stat(filepath.Dir(seenPath)); !os.IsNotExist(err) {
		t.Fatal("temp dir must be removed after fn returns")
	}
}

func TestWithTempDownloadDefaultsExtension(t *testing.T) {
	downloader := &fakeDownloader{content: []byte("x")}

	err := WithTempDownload(context.Background(), downloader, "raw/no-extension", func(localPath string) error {
		if !strings.HasSuffix(localPath, ".mp4") {
			t.Fatalf("expected .mp4 fallback, got %s", localPath)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTempDownload returned error: %v", err)
	}
}

func TestWithTempDownloadCleansUpOnError(t *testing.T) {
	downloader := &fakeDownloader{content: []byte("x")}

	var seenPath string
	err := WithTempDownload(context.Background(), downloader, "raw/abc.avi", func(localPath string) error {
		seenPath = localPath
		return errors.New("analysis failed")
	})
	if err == nil {
		t.Fatal("fn error must be propagated")
	}
	if _, statErr := os.Stat(filepath.Dir(seenPath)); !os.IsNotExist(statErr) {
		t.Fatal("temp dir must be removed even when fn fails")
	}
}

func TestWithTempDownloadDownloadError(t *testing.T) {
	downloader := &fakeDownloader{err: errors.New("object missing")}

	called := false
	err := WithTempDownload(context.Background(), downloader, "raw/abc.mp4", func(localPath string) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("download error must be propagated")
	}
	if called {
		t.Fatal("fn must not run when the download fails")
	}
}
