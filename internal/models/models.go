// package models defines the data model for the artist upload client
package models

import (
	"time"
)

// Model is a row of the local draft database. [Draft] and [UploadJob] are the two kinds kept there; remote
// rows (records.go) are plain structs and never go through a Repository.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	// Validate reports whether the model can be written.
	Validate() error
}

// Repository is the CRUD surface shared by the local stores. Delete is a soft delete and List filters
// by column values in criteria.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
