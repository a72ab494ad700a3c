// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package validation wraps go-playground/validator for request structs,
// translating tag failures into stable API error details.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/cubescope/internal/models"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// instance returns the process-wide validator.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes one failed validation constraint.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// RequestValidationError aggregates the failures for one request struct.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ToAPIError converts the failure set into the response envelope form.
func (e *RequestValidationError) ToAPIError() *models.APIError {
	details := make(map[string]interface{}, len(e.Fields))
	for _, f := range e.Fields {
		details[f.Field] = f.Message
	}
	return &models.APIError{
		Code:    models.ErrCodeValidation,
		Message: "Request validation failed",
		Details: details,
	}
}

// Struct validates s and returns a *RequestValidationError on failure.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe),
		})
	}
	return &RequestValidationError{Fields: fields}
}

var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"uuid":     "%s must be a valid UUID",
	"oneof":    "%s must be one of the allowed values",
	"datetime": "%s must be a valid timestamp",
}

var errorMessageWithParam = map[string]string{
	"min": "%s must be at least %s",
	"max": "%s must be at most %s",
	"gte": "%s must be at least %s",
	"lte": "%s must be at most %s",
	"len": "%s must have length %s",
}

// translateError renders one field failure as a human-readable message.
func translateError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	if tmpl, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("%s failed validation on %s", field, fe.Tag())
}
