package handlers

import (
	"fmt"
	"net/http"

	"video-library/internal/library"
	"video-library/internal/logging"

	"github.com/gorilla/mux"
)

// ListCategories returns the category directory names.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.library.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string][]string{"categories": categories})
}

// ListVideos returns a read-only listing of the library, optionally for one
// category. Files without sidecars are listed with hasMetadata=false.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	result, err := h.library.ListAssets(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, result)
}

// ScanLibrary synthesizes missing sidecars across every category.
func (h *Handlers) ScanLibrary(w http.ResponseWriter, r *http.Request) {
	result, err := h.library.ScanAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.Info("Scan requested: scanned=%d found=%d processed=%d errors=%d",
		result.Scanned, result.Found, result.Processed, result.Errors)
	writeJSONStatus(w, http.StatusOK, result)
}

// ScanCategory synthesizes missing sidecars in one category.
func (h *Handlers) ScanCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	result, err := h.library.ScanCategory(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.Info("Scan of %q requested: scanned=%d found=%d processed=%d errors=%d",
		category, result.Scanned, result.Found, result.Processed, result.Errors)
	writeJSONStatus(w, http.StatusOK, result)
}

// GetVideo returns one asset with its metadata.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	asset, err := h.library.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, asset)
}

// StreamVideo serves the asset's bytes, honouring a single Range header.
func (h *Handlers) StreamVideo(w http.ResponseWriter, r *http.Request) {
	asset, err := h.library.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	rangeHeader := r.Header.Get("Range")
	resp, err := h.streamer.Stream(asset.FilePath, rangeHeader)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if resp.Status == http.StatusRequestedRangeNotSatisfiable {
		logging.Debug("Unsatisfiable range %q for %s", rangeHeader, asset.ID)
	}

	// The copy error is already logged and counted by the streamer.
	_ = h.streamer.Write(r.Context(), w, resp)
}

// GetThumbnail serves the asset's sidecar thumbnail with ETag revalidation.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	asset, err := h.library.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !asset.HasMetadata || asset.Metadata == nil || asset.Metadata.Thumbnail == "" {
		writeError(w, r, fmt.Errorf("%w: %s has no thumbnail", library.ErrAssetNotFound, asset.ID))
		return
	}

	path, err := h.library.ThumbnailFile(asset.Metadata.Thumbnail)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.streamer.ServeImage(path, r.Header.Get("If-None-Match"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = h.streamer.Write(r.Context(), w, resp)
}
