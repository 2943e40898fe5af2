package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInsufficientPoints     = errors.New("insufficient points")
	ErrMembershipRequired     = errors.New("active membership required")
	ErrUnknownPlan            = errors.New("unknown membership plan")
	ErrConcurrentModification = errors.New("account changed concurrently, please retry")
	ErrInvalidCredentials     = errors.New("wrong email or password")
	ErrEmailTaken             = errors.New("email is already registered")
	ErrUserNotFound           = errors.New("user not found")
	ErrListingNotFound        = errors.New("listing not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidAmount          = errors.New("amount must be positive")
)

// InsufficientPointsError carries the numbers behind ErrInsufficientPoints.
type InsufficientPointsError struct {
	Required  int
	Available int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: %d required, %d available", e.Required, e.Available)
}

func (e *InsufficientPointsError) Is(target error) bool {
	return target == ErrInsufficientPoints
}

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// OrNil returns e when it holds at least one problem.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Messages lists the problems in field order, for display.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.Fields[k])
	}
	return out
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
