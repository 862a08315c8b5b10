package domain

import (
	"strings"
	"time"
)

// Session is the authenticated identity under which all garden operations run.
// At most one session exists per chat; it is persisted under a single
// well-known key and cleared wholesale on logout.
type Session struct {
	UserID   int
	Username string
	IssuedAt time.Time
}

// PlantRecord is one tracked plant in a user's garden.
type PlantRecord struct {
	ID          int
	UserID      int
	Name        string
	Species     string
	DatePlanted string
	ImageURL    string
}

// Growth log statuses accepted by the backend.
const (
	StatusHealthy    = "Healthy"
	StatusFlowering  = "Flowering"
	StatusFruiting   = "Fruiting"
	StatusSick       = "Sick"
	StatusRecovering = "Recovering"
)

// LogStatuses lists the selectable growth statuses in menu order.
var LogStatuses = []string{StatusHealthy, StatusFlowering, StatusFruiting, StatusSick, StatusRecovering}

// GrowthLogEntry is one dated observation of a plant, newest first in all views.
type GrowthLogEntry struct {
	ID       int
	PlantID  int
	Date     string
	Note     string
	Status   string
	ImageURL string
}

// Treatment is one suggested remedy for a diagnosed disease.
type Treatment struct {
	Type        string
	Description string
	CostApprox  string
}

// DiseaseDetails holds the structured disease information returned by the
// diagnosis service.
type DiseaseDetails struct {
	Name       string
	Severity   string
	Symptoms   string
	Prevention string
	Treatments []Treatment
}

// DiagnosisResult is the outcome of analyzing a plant photo. It is transient:
// nothing is written back to the backend unless the user explicitly saves a
// growth log from it.
type DiagnosisResult struct {
	PlantName   string
	DiseaseName string
	Confidence  float64
	Details     *DiseaseDetails
}

// SuggestedStatus returns the growth status a diagnosis pre-fills for a new
// log entry.
func (d *DiagnosisResult) SuggestedStatus() string {
	if strings.Contains(strings.ToLower(d.DiseaseName), "healthy") {
		return StatusHealthy
	}
	return StatusSick
}

// AssistantAnswer is the result of an assistant query: either a website to
// open or a markdown answer from the Q&A service.
type AssistantAnswer struct {
	OpenURL string
	Text    string
}

// DiagnosisHistoryEntry is one past diagnosis as shown in the history view.
type DiagnosisHistoryEntry struct {
	When        time.Time
	PlantName   string
	DiseaseName string
	Confidence  float64
	Provider    string
}
