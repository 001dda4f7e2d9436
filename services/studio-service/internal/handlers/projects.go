package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a-mestre/hilvan/services/studio-service/internal/booking"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
	"github.com/a-mestre/hilvan/services/studio-service/internal/storage"
)

// deliveryHour is when a deadline-derived delivery appointment starts.
const deliveryHour = 10

type ProjectsHandler struct {
	repo        *storage.ProjectRepository
	alterations *storage.AlterationRepository
	creator     booking.AppointmentCreator
	clients     booking.ClientDirectory
	loc         *time.Location
	logger      *slog.Logger
}

func NewProjectsHandler(repo *storage.ProjectRepository, alterations *storage.AlterationRepository, creator booking.AppointmentCreator, clients booking.ClientDirectory, loc *time.Location, logger *slog.Logger) *ProjectsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ProjectsHandler{
		repo:        repo,
		alterations: alterations,
		creator:     creator,
		clients:     clients,
		loc:         loc,
		logger:      logger,
	}
}

type alterationPayload struct {
	GarmentType    string                 `json:"garment_type"`
	Tasks          []model.AlterationTask `json:"tasks"`
	Notes          string                 `json:"notes,omitempty"`
	EvidenceImages []string               `json:"evidence_images,omitempty"`
}

type createProjectRequest struct {
	ClientID    string             `json:"client_id"`
	Title       string             `json:"title"`
	Type        string             `json:"type"`
	Description string             `json:"description"`
	TotalCost   float64            `json:"total_cost"`
	Deposit     float64            `json:"deposit"`
	IsPaid      bool               `json:"is_paid"`
	Images      []string           `json:"images"`
	Deadline    string             `json:"deadline"`
	Alteration  *alterationPayload `json:"alteration"`
}

type projectItem struct {
	ID          string             `json:"id"`
	ClientID    string             `json:"client_id"`
	ClientName  string             `json:"client_name,omitempty"`
	Title       string             `json:"title"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	Description string             `json:"description,omitempty"`
	TotalCost   float64            `json:"total_cost"`
	Deposit     float64            `json:"deposit"`
	IsPaid      bool               `json:"is_paid"`
	Images      []string           `json:"images,omitempty"`
	CreatedAt   string             `json:"created_at"`
	Alteration  *alterationPayload `json:"alteration,omitempty"`
}

type createProjectResponse struct {
	projectItem
	AppointmentID string `json:"appointment_id,omitempty"`
	// AppointmentError reports a failed delivery-appointment write without
	// failing the project creation.
	AppointmentError string `json:"appointment_error,omitempty"`
}

// Projects handles GET list and POST create on /api/v1/projects.
func (h *ProjectsHandler) Projects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Project handles GET and PATCH on /api/v1/projects/{id}.
func (h *ProjectsHandler) Project(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/projects/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPatch:
		h.patch(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProjectsHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var projects []model.Project
	var err error
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		projects, err = h.repo.ListByClient(r.Context(), owner, clientID)
	} else {
		projects, err = h.repo.List(r.Context(), owner)
	}
	if err != nil {
		http.Error(w, "failed to load projects", http.StatusInternalServerError)
		return
	}

	items := make([]projectItem, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProjectItem(p, nil))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

// create writes the project, its alteration sheet when given, and a delivery
// appointment when a deadline is set. A failed appointment write does not
// undo the project; it is reported in the response instead.
func (h *ProjectsHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ClientID == "" || req.Title == "" {
		http.Error(w, "client_id and title required", http.StatusBadRequest)
		return
	}
	switch req.Type {
	case "confection", "alteration":
	default:
		http.Error(w, "type must be confection or alteration", http.StatusBadRequest)
		return
	}
	if req.Type == "alteration" && req.Alteration == nil {
		http.Error(w, "alteration details required", http.StatusBadRequest)
		return
	}

	var deadline time.Time
	if req.Deadline != "" {
		var err error
		deadline, err = time.ParseInLocation("2006-01-02", req.Deadline, h.loc)
		if err != nil {
			http.Error(w, "invalid deadline, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	project, err := h.repo.Create(r.Context(), model.Project{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		ClientID:    req.ClientID,
		Title:       req.Title,
		Type:        req.Type,
		Status:      "pending",
		Description: req.Description,
		TotalCost:   req.TotalCost,
		Deposit:     req.Deposit,
		IsPaid:      req.IsPaid,
		Images:      req.Images,
	})
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "unknown client", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}

	var alteration *alterationPayload
	if req.Alteration != nil {
		created, err := h.alterations.Create(r.Context(), model.Alteration{
			ID:             uuid.NewString(),
			OwnerID:        owner,
			ProjectID:      project.ID,
			GarmentType:    strings.TrimSpace(req.Alteration.GarmentType),
			Tasks:          req.Alteration.Tasks,
			Notes:          req.Alteration.Notes,
			EvidenceImages: req.Alteration.EvidenceImages,
		})
		if err != nil {
			h.logger.Error("alteration create failed", "project_id", project.ID, "err", err)
		} else {
			alteration = &alterationPayload{
				GarmentType:    created.GarmentType,
				Tasks:          created.Tasks,
				Notes:          created.Notes,
				EvidenceImages: created.EvidenceImages,
			}
		}
	}

	resp := createProjectResponse{projectItem: toProjectItem(project, alteration)}
	if !deadline.IsZero() {
		appt, err := h.createDeliveryAppointment(r, owner, project, deadline)
		if err != nil {
			h.logger.Error("delivery appointment create failed", "project_id", project.ID, "err", err)
			resp.AppointmentError = "project created, but automatic appointment failed"
		} else {
			resp.AppointmentID = appt.ID
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *ProjectsHandler) createDeliveryAppointment(r *http.Request, owner string, project model.Project, deadline time.Time) (model.Appointment, error) {
	clientName := ""
	if client, err := h.clients.Get(r.Context(), owner, project.ClientID); err == nil {
		clientName = client.FullName
	}

	y, m, d := deadline.Date()
	start := time.Date(y, m, d, deliveryHour, 0, 0, 0, h.loc)
	return h.creator.Create(r.Context(), model.Appointment{
		OwnerID:   owner,
		ClientID:  project.ClientID,
		ProjectID: project.ID,
		Type:      "delivery",
		Title:     booking.Title("delivery", clientName),
		Notes:     project.Title,
		Status:    "scheduled",
		Origin:    "project",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
}

func (h *ProjectsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	project, err := h.repo.Get(r.Context(), owner, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load project", http.StatusInternalServerError)
		return
	}

	var alteration *alterationPayload
	if project.Type == "alteration" {
		if alt, err := h.alterations.GetByProject(r.Context(), owner, id); err == nil {
			alteration = &alterationPayload{
				GarmentType:    alt.GarmentType,
				Tasks:          alt.Tasks,
				Notes:          alt.Notes,
				EvidenceImages: alt.EvidenceImages,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toProjectItem(project, alteration))
}

type patchProjectRequest struct {
	Status *string `json:"status"`
	IsPaid *bool   `json:"is_paid"`
}

func (h *ProjectsHandler) patch(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req patchProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Status == nil && req.IsPaid == nil {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	if req.Status != nil {
		switch *req.Status {
		case "pending", "in_progress", "completed", "delivered":
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		if err := h.repo.UpdateStatus(r.Context(), owner, id, *req.Status); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "project not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to update project", http.StatusInternalServerError)
			return
		}
	}
	if req.IsPaid != nil {
		if err := h.repo.SetPaid(r.Context(), owner, id, *req.IsPaid); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "project not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to update project", http.StatusInternalServerError)
			return
		}
	}

	h.get(w, r, id)
}

func toProjectItem(p model.Project, alteration *alterationPayload) projectItem {
	return projectItem{
		ID:          p.ID,
		ClientID:    p.ClientID,
		ClientName:  p.ClientName,
		Title:       p.Title,
		Type:        p.Type,
		Status:      p.Status,
		Description: p.Description,
		TotalCost:   p.TotalCost,
		Deposit:     p.Deposit,
		IsPaid:      p.IsPaid,
		Images:      p.Images,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		Alteration:  alteration,
	}
}
