package storage

import (
	"context"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
)

// Storage defines the persistence layer for owners, alerts and price history.
type Storage interface {
	// ResolveOwner returns the owner for an external identity, creating it on first contact.
	// A non-empty notifyTarget is persisted on the owner and on the owner's active alerts.
	ResolveOwner(ctx context.Context, platform, externalID, notifyTarget string) (*model.Owner, error)

	// GetOwner retrieves an owner by internal id.
	GetOwner(ctx context.Context, id string) (*model.Owner, error)

	// CreateAlert validates and persists a new active alert.
	CreateAlert(ctx context.Context, alert *model.Alert) error

	// GetAlert retrieves an alert by id regardless of its active flag.
	GetAlert(ctx context.Context, id string) (*model.Alert, error)

	// ListActiveByOwner returns the owner's active alerts, newest first.
	ListActiveByOwner(ctx context.Context, ownerID string) ([]model.Alert, error)

	// ListAllActiveNotPast returns every active alert departing on or after today.
	ListAllActiveNotPast(ctx context.Context, today time.Time) ([]model.Alert, error)

	// Deactivate soft-deletes an alert. It reports false when the id is unknown,
	// already inactive, or owned by someone else.
	Deactivate(ctx context.Context, id, ownerID string) (bool, error)

	// RecordObservation atomically sets the alert's last price and appends a history row.
	RecordObservation(ctx context.Context, alertID string, price float64, observedAt time.Time) (*model.PriceObservation, error)

	// ListObservations returns an alert's price history, oldest first.
	ListObservations(ctx context.Context, alertID string) ([]model.PriceObservation, error)

	// Close releases resources.
	Close() error
}
