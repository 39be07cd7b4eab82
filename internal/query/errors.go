package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEntity signals a dispatch for a kind that has no search policy.
	ErrUnsupportedEntity = errors.New("unsupported entity kind")
	// ErrInvalidOrder signals an order symbol the entity policy does not accept.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidSpec signals a QuerySpec that breaks its structural invariants.
	ErrInvalidSpec = errors.New("invalid query spec")
	// ErrSchemaMismatch signals group keys that disagree with the store schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrScopesRequired is returned when a dispatcher is built without store scopes.
	ErrScopesRequired = errors.New("store scopes required")
)

// UnsupportedEntityError wraps ErrUnsupportedEntity with the offending kind.
type UnsupportedEntityError struct {
	Kind EntityKind
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedEntity.Error(), string(e.Kind))
}

func (e *UnsupportedEntityError) Unwrap() error { return ErrUnsupportedEntity }

// InvalidOrderError wraps ErrInvalidOrder with the rejected symbol.
type InvalidOrderError struct {
	Kind  EntityKind
	Order string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("%s for %s: %q", ErrInvalidOrder.Error(), e.Kind, e.Order)
}

func (e *InvalidOrderError) Unwrap() error { return ErrInvalidOrder }
