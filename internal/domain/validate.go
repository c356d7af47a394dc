package domain

import (
	"fmt"
	"unicode/utf8"
)

// FieldError describes a single invalid field. Field errors surface inline
// next to the offending input and are never fatal.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks login credentials.
func (c Credentials) Validate() []FieldError {
	var errs []FieldError
	switch n := utf8.RuneCountInString(c.Username); {
	case n == 0:
		errs = append(errs, FieldError{"username", "Username is required"})
	case n < 3:
		errs = append(errs, FieldError{"username", "Username must be at least 3 characters"})
	}
	switch n := utf8.RuneCountInString(c.Password); {
	case n == 0:
		errs = append(errs, FieldError{"password", "Password is required"})
	case n < 6:
		errs = append(errs, FieldError{"password", "Password must be at least 6 characters"})
	}
	return errs
}

// Validate checks a create-task payload.
func (c CreateTask) Validate() []FieldError {
	var errs []FieldError
	errs = append(errs, validateTitle(c.Title)...)
	errs = append(errs, validateDescription(c.Description)...)
	if c.Status == "" {
		errs = append(errs, FieldError{"status", "Status is required"})
	} else if !c.Status.Valid() {
		errs = append(errs, FieldError{"status", "Invalid status"})
	}
	return errs
}

// Validate checks an update payload. Absent fields are always valid; present
// fields obey the same rules as creation.
func (u UpdateTask) Validate() []FieldError {
	var errs []FieldError
	if u.Title != nil {
		errs = append(errs, validateTitle(*u.Title)...)
	}
	if u.Description != nil {
		errs = append(errs, validateDescription(*u.Description)...)
	}
	if u.Status != nil {
		if *u.Status == "" {
			errs = append(errs, FieldError{"status", "Status is required"})
		} else if !u.Status.Valid() {
			errs = append(errs, FieldError{"status", "Invalid status"})
		}
	}
	return errs
}

func validateTitle(title string) []FieldError {
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		return []FieldError{{"title", "Title is required"}}
	case n < 3:
		return []FieldError{{"title", "Title must be at least 3 characters"}}
	case n > 100:
		return []FieldError{{"title", "Title must not exceed 100 characters"}}
	}
	return nil
}

func validateDescription(desc string) []FieldError {
	switch n := utf8.RuneCountInString(desc); {
	case n == 0:
		return []FieldError{{"description", "Description is required"}}
	case n < 10:
		return []FieldError{{"description", "Description must be at least 10 characters"}}
	case n > 500:
		return []FieldError{{"description", "Description must not exceed 500 characters"}}
	}
	return nil
}
