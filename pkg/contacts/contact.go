// Package contacts holds the contact model and its stores.
package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no contact has the requested ID.
var ErrNotFound = errors.New("contact not found")

// Contact is a person in the address book.
type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" form:"name" validate:"required,max=100"`
	Email     string    `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores contacts. Implementations are safe for concurrent use.
type Repository interface {
	// List returns all contacts ordered by name ignoring case, then ID.
	List(ctx context.Context) ([]Contact, error)
	Get(ctx context.Context, id int64) (Contact, error)
	// Create validates c, stores it and fills in its ID and timestamps.
	Create(ctx context.Context, c *Contact) error
	// Update validates c and replaces the stored contact with the same ID.
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims surrounding whitespace from user input.
func (c *Contact) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
}

// Validate checks the user editable fields. Failures are validator.ValidationErrors.
func (c Contact) Validate() error {
	return validate.Struct(c)
}

// FieldErrors maps the fields rejected by Validate to a human readable message. Any
// other error yields nil.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "email":
		return fe.Field() + " must be a valid email address"
	default:
		return fe.Field() + " is invalid"
	}
}
