package store

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ExportRun packages the run's head JSON, event log, and artifacts
// into zip bytes.
func (s *Store) ExportRun(runID string) ([]byte, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	head, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, err
	}
	return buildExportZip(head, s.runEventsPath(runID), filepath.Join(s.runDir(runID), "artifacts"), nil)
}

// ExportSession packages the session's head JSON, event log,
// attachments, and artifacts into zip bytes.
func (s *Store) ExportSession(sessionID string) ([]byte, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	head, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, err
	}
	return buildExportZip(
		head,
		s.sessionEventsPath(sessionID),
		filepath.Join(s.sessionDir(sessionID), "artifacts"),
		[]string{filepath.Join(s.sessionDir(sessionID), "attachments")},
	)
}

func buildExportZip(head []byte, eventsPath, artifactsDir string, extraDirs []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeZipEntry(zw, "head.json", head); err != nil {
		return nil, err
	}
	if events, err := os.ReadFile(eventsPath); err == nil {
		if err := writeZipEntry(zw, "events.ndjson", events); err != nil {
			return nil, err
		}
	}

	dirs := append([]string{artifactsDir}, extraDirs...)
	for _, dir := range dirs {
		base := filepath.Base(dir)
		if err := addZipDir(zw, dir, base); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("store: close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addZipDir(zw *zip.Writer, dir, prefix string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		return writeZipEntry(zw, filepath.ToSlash(filepath.Join(prefix, rel)), data)
	})
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("store: create zip entry %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}
