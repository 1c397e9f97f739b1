// Package store persists incident records. The triage core treats the
// store as a collaborator: it only ever reads prior incidents and
// observes status changes through the reporter.
package store

import (
	"context"

	"github.com/ppiankov/triage/internal/model"
)

// Store is the incident persistence contract.
type Store interface {
	// CreateIncident persists a new incident, assigning its id,
	// creation time, and Open status. Returns the stored record.
	CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error)

	// IncidentsForUser returns all of a user's incidents, newest first.
	IncidentsForUser(ctx context.Context, userID string) ([]model.Incident, error)

	// IncidentsForUserByStatus returns a user's incidents with any of
	// the given statuses, newest first.
	IncidentsForUserByStatus(ctx context.Context, userID string, statuses ...string) ([]model.Incident, error)

	// UpdateStatus moves an incident to newStatus. Returns the updated
	// record, or nil when the incident does not exist for that user.
	UpdateStatus(ctx context.Context, incidentID, userID, newStatus string) (*model.Incident, error)

	// UpdateLevel sets the classified severity level on an incident.
	UpdateLevel(ctx context.Context, incidentID string, level int) error

	// Close releases the underlying resources.
	Close() error
}
