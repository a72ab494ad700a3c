// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package models

import "time"

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status   string            `json:"status"` // "success" or "error"
	Data     interface{}       `json:"data,omitempty"`
	Error    *APIError         `json:"error,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
}

// APIError carries a stable machine-readable code alongside the message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ResponseMetadata describes how the response was produced.
type ResponseMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
	Cached      bool      `json:"cached,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Stable error codes returned in APIError.Code.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeService      = "SERVICE_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// NewSuccessResponse builds a success envelope with fresh metadata.
func NewSuccessResponse(data interface{}, queryTimeMS int64, cached bool) *APIResponse {
	return &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: &ResponseMetadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTimeMS,
			Cached:      cached,
		},
	}
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(code, message string, details map[string]interface{}) *APIResponse {
	return &APIResponse{
		Status: "error",
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Metadata: &ResponseMetadata{Timestamp: time.Now().UTC()},
	}
}
