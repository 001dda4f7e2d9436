package model

import "time"

// Client is one entry in the studio's client directory.
type Client struct {
	ID          string
	OwnerID     string
	FullName    string
	Email       string
	Phone       string
	Address     string
	AddressLink string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Measurement is a body-measurement sheet taken for a client, optionally
// tied to a project. Values maps measure names (busto, cintura, ...) to
// centimetres.
type Measurement struct {
	ID         string
	OwnerID    string
	ClientID   string
	ProjectID  string
	Values     map[string]float64
	Notes      string
	Images     []string
	CreatedAt  time.Time
	ClientName string
}

// Project is a piece of work for a client: a confection (made from scratch)
// or an alteration of an existing garment.
type Project struct {
	ID          string
	OwnerID     string
	ClientID    string
	Title       string
	Type        string
	Status      string
	Description string
	TotalCost   float64
	Deposit     float64
	IsPaid      bool
	Images      []string
	CreatedAt   time.Time
	ClientName  string
}

// AlterationTask is a single line of work on an alteration sheet.
type AlterationTask struct {
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// Alteration details the garment and task list for an alteration project.
type Alteration struct {
	ID             string
	OwnerID        string
	ProjectID      string
	GarmentType    string
	Tasks          []AlterationTask
	Notes          string
	EvidenceImages []string
	CreatedAt      time.Time
}

// Appointment is one calendar entry. EndTime is stored, not derived; the
// booking controller always writes StartTime + 1h but the store does not
// enforce that.
type Appointment struct {
	ID         string
	OwnerID    string
	ClientID   string
	ProjectID  string
	Type       string
	Title      string
	Notes      string
	Status     string
	Origin     string
	StartTime  time.Time
	EndTime    time.Time
	CreatedAt  time.Time
	ClientName string
}
