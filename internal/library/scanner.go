package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"video-library/internal/filesystem"
	"video-library/internal/logging"
	"video-library/internal/metrics"
)

type scanMode string

const (
	modeScan scanMode = "scan"
	modeList scanMode = "list"
)

// ScanAll walks the whole library and synthesizes every missing sidecar.
func (l *Library) ScanAll(ctx context.Context) (*ScanResult, error) {
	return l.run(ctx, "all", l.videosDir, modeScan)
}

// ScanCategory walks one category and synthesizes its missing sidecars.
func (l *Library) ScanCategory(ctx context.Context, category string) (*ScanResult, error) {
	dir, err := l.categoryRoot(category)
	if err != nil {
		return nil, err
	}
	return l.run(ctx, "category", dir, modeScan)
}

// ListAssets walks the library, or one category when category is not
// empty, without synthesizing anything.
func (l *Library) ListAssets(ctx context.Context, category string) (*ScanResult, error) {
	if category == "" {
		return l.run(ctx, "all", l.videosDir, modeList)
	}
	dir, err := l.categoryRoot(category)
	if err != nil {
		return nil, err
	}
	return l.run(ctx, "category", dir, modeList)
}

func (l *Library) categoryRoot(category string) (string, error) {
	dir, err := l.CategoryDir(category)
	if err != nil {
		return "", err
	}
	info, err := filesystem.StatWithRetry(l.fs, dir, l.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
		}
		return "", fmt.Errorf("stat category %s: %w", category, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrCategoryNotFound, category)
	}
	return dir, nil
}

func (l *Library) run(ctx context.Context, scope, root string, mode scanMode) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{
		Assets:       []VideoAsset{},
		ErrorEntries: []ErrorEntry{},
	}

	err := l.walk(ctx, root, func(path, rel string, _ os.FileInfo) error {
		result.Scanned++
		l.visit(ctx, path, rel, mode, result)
		return nil
	}, func(path string, err error) {
		logging.Warn("Skipping unreadable entry %s: %v", path, err)
		result.addError(path, err)
	})

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	metrics.ScanRunsTotal.WithLabelValues(scope, string(mode)).Inc()
	metrics.ScanDuration.WithLabelValues(scope, string(mode)).Observe(time.Since(start).Seconds())
	metrics.ScanFilesTotal.WithLabelValues("scanned").Add(float64(result.Scanned))
	metrics.ScanFilesTotal.WithLabelValues("found").Add(float64(result.Found))
	metrics.ScanFilesTotal.WithLabelValues("processed").Add(float64(result.Processed))
	metrics.ScanFilesTotal.WithLabelValues("error").Add(float64(result.Errors))

	if mode == modeScan {
		logging.Info("Scan of %s complete: scanned=%d found=%d processed=%d errors=%d in %v",
			root, result.Scanned, result.Found, result.Processed, result.Errors, time.Since(start).Round(time.Millisecond))
	} else {
		logging.Debug("Listed %s: %d assets, %d without metadata", root, result.Scanned, result.Found)
	}
	return result, nil
}

// visit handles one discovered file. Failures are recorded on result.
func (l *Library) visit(ctx context.Context, path, rel string, mode scanMode, result *ScanResult) {
	info, err := filesystem.StatWithRetry(l.fs, path, l.retry)
	if err != nil {
		result.addError(path, fmt.Errorf("stat: %w", err))
		return
	}
	asset := newAsset(path, rel, info)

	meta, err := l.readSidecar(path)
	switch {
	case err == nil:
		asset.Metadata = meta
		asset.HasMetadata = true
		result.Assets = append(result.Assets, *asset)
		return
	case !errors.Is(err, os.ErrNotExist):
		// An unreadable sidecar is reported, never overwritten.
		result.addError(path, err)
		result.Assets = append(result.Assets, *asset)
		return
	}

	result.Found++
	if mode == modeScan {
		meta, err := l.Synthesize(ctx, asset, SynthesisOptions{})
		if err != nil {
			logging.Warn("Metadata synthesis failed for %s: %v", path, err)
			result.addError(path, err)
		} else {
			asset.Metadata = meta
			asset.HasMetadata = true
			result.Processed++
		}
	}
	result.Assets = append(result.Assets, *asset)
}
