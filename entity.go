package reporter

import "time"

// Entity carries the timestamps shared by every persisted domain object.
// Aggregates embed it; stores refresh UpdatedAt on save.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}
