package model

import (
	"fmt"
	"time"
)

// Incident is a persisted user-reported issue record.
type Incident struct {
	ID           string    `json:"id"` // e.g. BUG-00042
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name,omitempty"`
	UserEmail    string    `json:"user_email,omitempty"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	DateObserved string    `json:"date_observed"` // YYYY-MM-DD as reported
	Status       string    `json:"status"`
	Level        int       `json:"level"`
	DateCreated  time.Time `json:"date_created"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Incident categories.
const (
	CategorySoftware = "Software"
	CategoryPlatform = "Platform"
	CategoryAccount  = "Account"
	CategoryOther    = "Other"
)

// Incident statuses.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

// Categories returns the valid incident categories.
func Categories() []string {
	return []string{CategorySoftware, CategoryPlatform, CategoryAccount, CategoryOther}
}

// Statuses returns the valid incident statuses.
func Statuses() []string {
	return []string{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

// ValidCategory reports whether category is one of the known categories.
func ValidCategory(category string) bool {
	for _, c := range Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// ValidStatus reports whether status is one of the known statuses.
func ValidStatus(status string) bool {
	for _, s := range Statuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IncidentIDPrefix prefixes every incident id.
const IncidentIDPrefix = "BUG-"

// FormatIncidentID renders a numeric row id as a display id (BUG-00001).
func FormatIncidentID(n int64) string {
	return fmt.Sprintf("%s%05d", IncidentIDPrefix, n)
}
