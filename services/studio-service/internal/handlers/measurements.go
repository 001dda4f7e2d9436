package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
	"github.com/a-mestre/hilvan/services/studio-service/internal/storage"
)

type MeasurementsHandler struct {
	repo *storage.MeasurementRepository
}

func NewMeasurementsHandler(repo *storage.MeasurementRepository) *MeasurementsHandler {
	return &MeasurementsHandler{repo: repo}
}

type measurementPayload struct {
	ClientID  string             `json:"client_id"`
	ProjectID string             `json:"project_id,omitempty"`
	Values    map[string]float64 `json:"values"`
	Notes     string             `json:"notes,omitempty"`
	Images    []string           `json:"images,omitempty"`
}

type measurementItem struct {
	ID string `json:"id"`
	measurementPayload
	ClientName string `json:"client_name"`
	CreatedAt  string `json:"created_at"`
}

// Measurements handles GET list and POST create on /api/v1/measurements.
// GET accepts client_id and latest=true to prefill a new sheet from the
// client's previous one.
func (h *MeasurementsHandler) Measurements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MeasurementsHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID != "" && r.URL.Query().Get("latest") == "true" {
		sheet, err := h.repo.LatestByClient(r.Context(), owner, clientID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "no measurements for client", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load measurements", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(toMeasurementItem(sheet))
		return
	}

	var sheets []model.Measurement
	var err error
	if clientID != "" {
		sheets, err = h.repo.ListByClient(r.Context(), owner, clientID)
	} else {
		sheets, err = h.repo.List(r.Context(), owner)
	}
	if err != nil {
		http.Error(w, "failed to load measurements", http.StatusInternalServerError)
		return
	}

	items := make([]measurementItem, 0, len(sheets))
	for _, m := range sheets {
		items = append(items, toMeasurementItem(m))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

func (h *MeasurementsHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req measurementPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" {
		http.Error(w, "client_id required", http.StatusBadRequest)
		return
	}
	if len(req.Values) == 0 {
		http.Error(w, "values required", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), model.Measurement{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		ClientID:  req.ClientID,
		ProjectID: strings.TrimSpace(req.ProjectID),
		Values:    req.Values,
		Notes:     req.Notes,
		Images:    req.Images,
	})
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "unknown client or project", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to create measurement", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toMeasurementItem(created))
}

func toMeasurementItem(m model.Measurement) measurementItem {
	return measurementItem{
		ID: m.ID,
		measurementPayload: measurementPayload{
			ClientID:  m.ClientID,
			ProjectID: m.ProjectID,
			Values:    m.Values,
			Notes:     m.Notes,
			Images:    m.Images,
		},
		ClientName: m.ClientName,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}
