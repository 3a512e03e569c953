package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// lifecycle carries the bookkeeping shared by persisted entities.
type lifecycle struct {
	sequence  int
	deletedAt *time.Time
}

// Sequence returns the human-readable insertion sequence.
func (l *lifecycle) Sequence() int { return l.sequence }

// SetSequence sets the insertion sequence.
func (l *lifecycle) SetSequence(seq int) { l.sequence = seq }

// DeletedAt returns the soft delete timestamp, nil when live.
func (l *lifecycle) DeletedAt() *time.Time { return l.deletedAt }

// SetDeletedAt marks the entity as soft deleted.
func (l *lifecycle) SetDeletedAt(t *time.Time) { l.deletedAt = t }
