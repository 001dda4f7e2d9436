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

type ClientsHandler struct {
	repo *storage.ClientRepository
}

func NewClientsHandler(repo *storage.ClientRepository) *ClientsHandler {
	return &ClientsHandler{repo: repo}
}

type clientPayload struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	AddressLink string `json:"address_link"`
	Notes       string `json:"notes"`
}

type clientItem struct {
	ID string `json:"id"`
	clientPayload
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Clients handles GET list and POST create on /api/v1/clients.
func (h *ClientsHandler) Clients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Client handles GET, PUT, DELETE on /api/v1/clients/{id}.
func (h *ClientsHandler) Client(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/clients/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ClientsHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	clients, err := h.repo.List(r.Context(), owner)
	if err != nil {
		http.Error(w, "failed to load clients", http.StatusInternalServerError)
		return
	}
	items := make([]clientItem, 0, len(clients))
	for _, c := range clients {
		items = append(items, toClientItem(c))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

func (h *ClientsHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		http.Error(w, "full_name required", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), model.Client{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		FullName:    req.FullName,
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		AddressLink: strings.TrimSpace(req.AddressLink),
		Notes:       req.Notes,
	})
	if err != nil {
		http.Error(w, "failed to create client", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toClientItem(created))
}

func (h *ClientsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	client, err := h.repo.Get(r.Context(), owner, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load client", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toClientItem(client))
}

func (h *ClientsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		http.Error(w, "full_name required", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.Update(r.Context(), model.Client{
		ID:          id,
		OwnerID:     owner,
		FullName:    req.FullName,
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		AddressLink: strings.TrimSpace(req.AddressLink),
		Notes:       req.Notes,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update client", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toClientItem(updated))
}

func (h *ClientsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), owner, id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete client", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toClientItem(c model.Client) clientItem {
	return clientItem{
		ID: c.ID,
		clientPayload: clientPayload{
			FullName:    c.FullName,
			Email:       c.Email,
			Phone:       c.Phone,
			Address:     c.Address,
			AddressLink: c.AddressLink,
			Notes:       c.Notes,
		},
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
