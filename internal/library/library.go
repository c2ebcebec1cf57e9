package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"video-library/internal/filesystem"
	"video-library/internal/logging"
	"video-library/internal/mediatypes"
	"video-library/internal/probe"

	"github.com/spf13/afero"
)

// Options configures a Library.
type Options struct {
	Fs            afero.Fs
	VideosDir     string
	ThumbnailsDir string
	Prober        probe.Prober
	// Retry applies to per-file stat and sidecar reads.
	Retry filesystem.RetryConfig
}

// Library scans the videos directory and synthesizes sidecars.
type Library struct {
	fs        afero.Fs
	videosDir string
	thumbsDir string
	prober    probe.Prober
	retry     filesystem.RetryConfig
}

// New creates a Library. VideosDir, ThumbnailsDir and Prober are required.
func New(opts Options) (*Library, error) {
	if opts.VideosDir == "" || opts.ThumbnailsDir == "" {
		return nil, errors.New("library: videos and thumbnails directories are required")
	}
	if opts.Prober == nil {
		return nil, errors.New("library: prober is required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Retry == (filesystem.RetryConfig{}) {
		opts.Retry = filesystem.DefaultRetryConfig()
	}

	return &Library{
		fs:        opts.Fs,
		videosDir: filepath.Clean(opts.VideosDir),
		thumbsDir: filepath.Clean(opts.ThumbnailsDir),
		prober:    opts.Prober,
		retry:     opts.Retry,
	}, nil
}

// Fs returns the filesystem the library reads from.
func (l *Library) Fs() afero.Fs { return l.fs }

// VideosDir returns the videos root.
func (l *Library) VideosDir() string { return l.videosDir }

// CategoryDir returns the directory of a category, validating its name.
func (l *Library) CategoryDir(category string) (string, error) {
	if !ValidCategory(category) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return filepath.Join(l.videosDir, category), nil
}

// Categories returns the directory names directly under the videos root, sorted.
func (l *Library) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(l.fs, l.videosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read videos directory: %w", err)
	}

	categories := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && ValidCategory(e.Name()) {
			categories = append(categories, e.Name())
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// ThumbnailFile maps a sidecar thumbnail reference to a path in the filesystem.
func (l *Library) ThumbnailFile(ref string) (string, error) {
	if ref == "" {
		return "", ErrAssetNotFound
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: thumbnail reference %q", ErrAssetNotFound, ref)
	}
	return filepath.Join(l.thumbsDir, clean), nil
}

// AssetFromPath builds the VideoAsset for one file under the videos root,
// loading its sidecar when present.
func (l *Library) AssetFromPath(path string) (*VideoAsset, error) {
	if !mediatypes.IsVideoFile(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(path))
	}

	rel, err := filepath.Rel(l.videosDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%s is outside the videos directory", path)
	}

	info, err := filesystem.StatWithRetry(l.fs, path, l.retry)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	asset := newAsset(path, rel, info)
	l.checkContainer(path)

	meta, err := l.readSidecar(path)
	switch {
	case err == nil:
		asset.Metadata = meta
		asset.HasMetadata = true
	case errors.Is(err, os.ErrNotExist):
	default:
		return asset, err
	}
	return asset, nil
}

// checkContainer warns when a file's leading bytes do not look like a video.
func (l *Library) checkContainer(path string) {
	f, err := filesystem.OpenWithRetry(l.fs, path, l.retry)
	if err != nil {
		return
	}
	defer f.Close()
	if !mediatypes.LooksLikeVideo(f) {
		logging.Warn("%s does not look like a video container (%s)", path, mediatypes.Detect(io.NewSectionReader(f, 0, 3072)))
	}
}

func newAsset(path, rel string, info os.FileInfo) *VideoAsset {
	category := categoryOf(rel)
	return &VideoAsset{
		ID:            AssetID(category, rel),
		FilePath:      path,
		FileName:      filepath.Base(path),
		Category:      category,
		FileSizeBytes: info.Size(),
		DateAdded:     info.ModTime().UTC(),
		relPath:       rel,
	}
}

// categoryOf returns the first path segment of rel, or the uncategorized
// bucket for files at the videos root.
func categoryOf(rel string) string {
	first, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
	if !nested {
		return UncategorizedCategory
	}
	return first
}

// Resolve walks the library and returns the asset with the given id.
func (l *Library) Resolve(ctx context.Context, id string) (*VideoAsset, error) {
	var found *VideoAsset
	errStop := errors.New("stop")

	err := l.walk(ctx, l.videosDir, func(path, rel string, info os.FileInfo) error {
		if AssetID(categoryOf(rel), rel) != id {
			return nil
		}
		found = newAsset(path, rel, info)
		return errStop
	}, func(string, error) {})
	if err != nil && !errors.Is(err, errStop) && !os.IsNotExist(err) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	if meta, err := l.readSidecar(found.FilePath); err == nil {
		found.Metadata = meta
		found.HasMetadata = true
	} else if !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to read sidecar for %s: %v", found.FilePath, err)
	}
	return found, nil
}

type visitFunc func(path, rel string, info os.FileInfo) error

// walk calls visit for every allow-listed, non-hidden file under root.
// Unreadable entries are reported through onErr and skipped.
func (l *Library) walk(ctx context.Context, root string, visit visitFunc, onErr func(string, error)) error {
	return afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			onErr(path, err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !mediatypes.IsVideoFile(path) {
			return nil
		}

		rel, err := filepath.Rel(l.videosDir, path)
		if err != nil {
			onErr(path, err)
			return nil
		}
		return visit(path, rel, info)
	})
}
