package library

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"video-library/internal/filesystem"
	"video-library/internal/mediatypes"

	"github.com/spf13/afero"
)

// SidecarPath returns the sidecar location for a video file.
func SidecarPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + mediatypes.SidecarExtension
}

// readSidecar loads the sidecar of videoPath. A missing sidecar yields an
// error matching os.ErrNotExist.
func (l *Library) readSidecar(videoPath string) (*VideoMetadata, error) {
	path := SidecarPath(videoPath)

	f, err := filesystem.OpenWithRetry(l.fs, path, l.retry)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var meta VideoMetadata
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode sidecar %s: %w", path, err)
	}
	return &meta, nil
}

// writeSidecar publishes meta beside videoPath. The document is written to a
// hidden temp file in the same directory and renamed into place, so readers
// see either the previous state or the complete sidecar.
func (l *Library) writeSidecar(videoPath string, meta *VideoMetadata) (err error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	data = append(data, '\n')

	dst := SidecarPath(videoPath)
	dir := filepath.Dir(dst)

	tmp, err := afero.TempFile(l.fs, dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp sidecar: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = l.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp sidecar: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp sidecar: %w", err)
	}
	if err = l.fs.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("publish sidecar: %w", err)
	}
	return nil
}
