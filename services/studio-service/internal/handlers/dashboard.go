package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/a-mestre/hilvan/services/studio-service/internal/storage"
)

type DashboardHandler struct {
	appointments *storage.AppointmentRepository
	projects     *storage.ProjectRepository
	loc          *time.Location
}

func NewDashboardHandler(appointments *storage.AppointmentRepository, projects *storage.ProjectRepository, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{appointments: appointments, projects: projects, loc: loc}
}

type dashboardResponse struct {
	AppointmentsToday int               `json:"appointments_today"`
	PendingProjects   int               `json:"pending_projects"`
	MonthRevenue      float64           `json:"month_revenue"`
	NextAppointments  []appointmentItem `json:"next_appointments"`
	RecentProjects    []projectItem     `json:"recent_projects"`
}

// Dashboard aggregates the studio's home-screen numbers.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	now := time.Now().In(h.loc)

	today, err := h.appointments.CountOnDay(ctx, owner, now)
	if err != nil {
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	pending, err := h.projects.CountPending(ctx, owner)
	if err != nil {
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	revenue, err := h.projects.MonthRevenue(ctx, owner, now)
	if err != nil {
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	next, err := h.appointments.Next(ctx, owner, now, 4)
	if err != nil {
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	recent, err := h.projects.Recent(ctx, owner, 3)
	if err != nil {
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	resp := dashboardResponse{
		AppointmentsToday: today,
		PendingProjects:   pending,
		MonthRevenue:      revenue,
		NextAppointments:  make([]appointmentItem, 0, len(next)),
		RecentProjects:    make([]projectItem, 0, len(recent)),
	}
	for _, a := range next {
		resp.NextAppointments = append(resp.NextAppointments, toAppointmentItem(a, h.loc))
	}
	for _, p := range recent {
		resp.RecentProjects = append(resp.RecentProjects, toProjectItem(p, nil))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
