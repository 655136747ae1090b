package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ImageRef is a candidate image returned by an image search
type ImageRef struct {
	URL   string
	Label string
}

// Scan statuses reported by the scan API. Anything else means the scan is
// still being processed.
const (
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// ScanID accepts both string and numeric ids
type ScanID string

func (id *ScanID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ScanID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ScanID(strings.TrimSpace(n.String()))
	return nil
}

type ScanSubmission struct {
	ID ScanID `json:"id"`
}

type Product struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ScanResult is the state of a submitted scan
type ScanResult struct {
	Status        string   `json:"status"`
	Product       *Product `json:"product,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// Terminal reports whether the scan reached completed or failed
func (r ScanResult) Terminal() bool {
	return r.Status == ScanStatusCompleted || r.Status == ScanStatusFailed
}

type SessionResponse struct {
	CurrentUser CurrentUser `json:"current_user"`
}

// CurrentUser is the identity behind a session cookie
type CurrentUser struct {
	ID        interface{} `json:"id,omitempty"`
	Name      string      `json:"name,omitempty"`
	FirstName string      `json:"first_name,omitempty"`
	Email     string      `json:"email,omitempty"`
}

// DisplayName picks the first populated of name, first_name and email
func (u CurrentUser) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

type LootTotal struct {
	TotalPoints float64 `json:"total_points"`
}

// Outcome is the result of a scan attempt that reached "completed"
type Outcome struct {
	ProductFound bool
	ProductName  string
	Score        float64
}

// Phase is where an account is in its scan cycle
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseReady
	PhaseCredentialError
	PhaseQueued
	PhaseRunning
	PhaseSuccess
	PhaseNoProductFound
	PhaseFailed
	PhaseWaiting
)

var phaseNames = map[Phase]string{
	PhaseInitializing:    "Initializing",
	PhaseReady:           "Ready",
	PhaseCredentialError: "Credential Error",
	PhaseQueued:          "Queued",
	PhaseRunning:         "Running",
	PhaseSuccess:         "Success",
	PhaseNoProductFound:  "No Product Found",
	PhaseFailed:          "Failed",
	PhaseWaiting:         "Waiting",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "Unknown"
}

// Eligible reports whether an account in this phase takes part in cycles
func (p Phase) Eligible() bool {
	return p != PhaseCredentialError && p != PhaseInitializing
}

// AccountState is the mutable per-account status shown on the dashboard.
// Points and LastScore are nil while unknown.
type AccountState struct {
	DisplayName  string
	Points       *float64
	Phase        Phase
	Detail       string
	LastProduct  string
	LastScore    *float64
	SuccessCount int
	FailCount    int
}

// Clone returns a deep copy
func (s AccountState) Clone() AccountState {
	out := s
	if s.Points != nil {
		p := *s.Points
		out.Points = &p
	}
	if s.LastScore != nil {
		v := *s.LastScore
		out.LastScore = &v
	}
	return out
}

// AccountView is one row of a snapshot
type AccountView struct {
	Index      int
	Credential string
	State      AccountState
}

// GlobalCounters aggregates turn results over all accounts
type GlobalCounters struct {
	TotalSuccess int
	TotalFail    int
}

// Snapshot is a point-in-time copy of the scheduler state
type Snapshot struct {
	Accounts []AccountView
	Counters GlobalCounters
	Message  string
	TakenAt  time.Time
}
