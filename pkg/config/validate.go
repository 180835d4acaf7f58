// Zaparoo Dashsim
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Dashsim.
//
// Zaparoo Dashsim is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Dashsim is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Dashsim.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator checks config values with go-playground/validator plus the
// custom tags dashsim needs.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", validateDuration)
	v.RegisterStructValidation(validateLoop, Loop{})
	return &Validator{validate: v}
}

var DefaultValidator = NewValidator()

func (v *Validator) Validate(vals any) error {
	if err := v.validate.Struct(vals); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// validateDuration accepts empty strings and non-negative Go durations.
func validateDuration(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	d, err := time.ParseDuration(val)
	return err == nil && d >= 0
}

// validateLoop requires the tick to be shorter than the fast interval so
// every timer category gets a chance to fire on time. Unset or malformed
// values are left to the field tags.
func validateLoop(sl validator.StructLevel) {
	loop, ok := sl.Current().Interface().(Loop)
	if !ok || loop.TickInterval == "" || loop.FastInterval == "" {
		return
	}
	tick, err := time.ParseDuration(loop.TickInterval)
	if err != nil {
		return
	}
	fast, err := time.ParseDuration(loop.FastInterval)
	if err != nil {
		return
	}
	if tick >= fast {
		sl.ReportError(loop.TickInterval, "TickInterval", "TickInterval", "ltfast", loop.FastInterval)
	}
}

type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Value   any
	Field   string
	Tag     string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{
		Fields: make([]FieldError, len(errs)),
	}
	for i, fe := range errs {
		ve.Fields[i] = FieldError{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: formatFieldError(fe),
		}
	}
	return ve
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Values."))
	switch fe.Tag() {
	case "required", "required_with":
		return field + " is required"
	case "duration":
		return field + " must be a valid duration (e.g., 50ms)"
	case "ltfast":
		return fmt.Sprintf("%s must be shorter than loop.fastinterval (%s)", field, fe.Param())
	case "url":
		return field + " must be a URL (e.g., tcp://localhost:1883)"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
