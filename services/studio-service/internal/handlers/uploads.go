package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/a-mestre/hilvan/services/studio-service/internal/files"
)

// maxUploadBytes caps a single reference image.
const maxUploadBytes = 8 << 20

type UploadsHandler struct {
	store files.ObjectStore
}

func NewUploadsHandler(store files.ObjectStore) *UploadsHandler {
	return &UploadsHandler{store: store}
}

type uploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload accepts a raw image body on POST /api/v1/uploads?kind=projects and
// returns the object key to record on the owning row.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	kind := r.URL.Query().Get("kind")
	switch kind {
	case "projects", "measurements", "alterations":
	default:
		http.Error(w, "kind must be projects, measurements or alterations", http.StatusBadRequest)
		return
	}

	contentType := r.Header.Get("Content-Type")
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
	default:
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	key, err := h.store.Upload(r.Context(), owner, kind, contentType, data)
	if err != nil {
		http.Error(w, "failed to store image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(uploadResponse{Key: key, URL: h.store.PublicURL(key)})
}
