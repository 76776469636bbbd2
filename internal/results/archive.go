package results

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrUpload wraps every failure to ship an archive. Callers log it and carry
// on; a failed upload never fails a session.
var ErrUpload = errors.New("uploading results")

// Uploader ships a session archive somewhere durable.
type Uploader interface {
	Upload(ctx context.Context, sessionID string, archive []byte) error
}

// Archiver zips a session directory and hands the bytes to an Uploader.
type Archiver struct {
	recorder *FileRecorder
	uploader Uploader
	logger   *slog.Logger
}

// NewArchiver returns an Archiver. A nil uploader makes Archive a no-op.
func NewArchiver(recorder *FileRecorder, uploader Uploader, logger *slog.Logger) *Archiver {
	return &Archiver{recorder: recorder, uploader: uploader, logger: logger}
}

// Archive writes <dir>.zip next to the session directory, uploads it and
// removes it again whatever the outcome.
func (a *Archiver) Archive(ctx context.Context, sessionID string) error {
	if a.uploader == nil {
		return nil
	}

	dir := a.recorder.Dir(sessionID)
	zipPath := dir + ".zip"
	defer os.Remove(zipPath)

	if err := zipDir(dir, zipPath); err != nil {
		return fmt.Errorf("%w: archiving %s: %v", ErrUpload, dir, err)
	}
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("%w: reading archive: %v", ErrUpload, err)
	}
	if err := a.uploader.Upload(ctx, sessionID, data); err != nil {
		return fmt.Errorf("%w: %v", ErrUpload, err)
	}
	a.logger.Info("results uploaded", "session", sessionID, "bytes", len(data))
	return nil
}

func zipDir(dir, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	return walkErr
}
