package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

const (
	// DefaultMaxBlobSize bounds request bodies when no limit is configured (64MB).
	DefaultMaxBlobSize = 64 << 20

	// maxDataIDLength keeps fragment object names within every backend's key limit.
	maxDataIDLength = 200
)

// RequestError provides structured error information for HTTP responses.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// FragmentPlacement is one entry of the fragment listing response.
type FragmentPlacement struct {
	FragmentNumber     int    `json:"fragment_number"`
	RepositoryLocation string `json:"repository_location"`
}

// Handler serves the blob API on top of a persistence service.
type Handler struct {
	service     interfaces.PersistenceService
	fragments   interfaces.FragmentMetadataStore
	maxBlobSize int64
	log         *slog.Logger
}

// NewHandler creates the blob API handler.
//
// fragments may be nil, in which case the fragment listing endpoint reports
// 404. maxBlobSize <= 0 selects DefaultMaxBlobSize.
func NewHandler(service interfaces.PersistenceService, fragments interfaces.FragmentMetadataStore, maxBlobSize int64, log *slog.Logger) *Handler {
	if maxBlobSize <= 0 {
		maxBlobSize = DefaultMaxBlobSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		service:     service,
		fragments:   fragments,
		maxBlobSize: maxBlobSize,
		log:         log,
	}
}

// HandlePutBlob stores the request body under the data ID in the URL.
//
// URL format: PUT /api/blobs/{id}
// Response: 204 No Content
func (h *Handler) HandlePutBlob(w http.ResponseWriter, r *http.Request) {
	dataID, err := dataIDFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.save(w, r, dataID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateBlob stores the request body under a freshly generated data ID.
//
// URL format: POST /api/blobs
// Response: 201 with {"id": "<uuid>"}
func (h *Handler) HandleCreateBlob(w http.ResponseWriter, r *http.Request) {
	dataID := uuid.NewString()
	if err := h.save(w, r, dataID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/blobs/"+dataID)
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": dataID})
}

// HandleGetBlob reconstructs a blob.
//
// URL format: GET /api/blobs/{id}
// Response: 200 with the blob as application/octet-stream
func (h *Handler) HandleGetBlob(w http.ResponseWriter, r *http.Request) {
	dataID, err := dataIDFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data, err := h.service.Load(r.Context(), dataID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Debug("Failed to write blob response", "dataId", dataID, "err", err)
	}
}

// HandleDeleteBlob removes every fragment of a blob.
//
// URL format: DELETE /api/blobs/{id}
// Response: 200 with {"deleted": <number of fragments removed>}
func (h *Handler) HandleDeleteBlob(w http.ResponseWriter, r *http.Request) {
	dataID, err := dataIDFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.service.Delete(r.Context(), dataID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// HandleListFragments reports where the fragments of a blob are stored.
//
// URL format: GET /api/blobs/{id}/fragments
// Response: 200 with a JSON array of FragmentPlacement
func (h *Handler) HandleListFragments(w http.ResponseWriter, r *http.Request) {
	if h.fragments == nil {
		http.NotFound(w, r)
		return
	}

	dataID, err := dataIDFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	records, err := h.fragments.GetAllFragmentMetadataForData(r.Context(), dataID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(records) == 0 {
		h.writeError(w, r, &RequestError{StatusCode: http.StatusNotFound, Err: fmt.Errorf("no fragments recorded for %q", dataID)})
		return
	}

	placements := make([]FragmentPlacement, 0, len(records))
	for _, md := range records {
		placements = append(placements, FragmentPlacement{
			FragmentNumber:     md.FragmentNumber,
			RepositoryLocation: md.RepositoryLocation,
		})
	}
	h.writeJSON(w, http.StatusOK, placements)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, dataID string) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBlobSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("blob exceeds %d bytes", tooLarge.Limit)}
		}
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("failed to read request body: %w", err)}
	}

	return h.service.Save(r.Context(), dataID, data)
}

func dataIDFrom(r *http.Request) (string, error) {
	dataID := r.PathValue("id")
	if dataID == "" {
		return "", &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("missing data id in URL")}
	}
	if len(dataID) > maxDataIDLength {
		return "", &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("data id longer than %d characters", maxDataIDLength)}
	}
	return dataID, nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, interfaces.ErrInsufficientFragments), errors.Is(err, interfaces.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrNotFullySaved):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Blob request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		h.log.Debug("Blob request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
