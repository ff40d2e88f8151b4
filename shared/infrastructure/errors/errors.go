/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors provides domain-specific error types for the broker.
// These errors let callers tell apart the failure modes of the credential
// pipeline (no identity, store down, access denied, role exchange rejected,
// bad input) without string matching. None of them carry secret material.
package errors

import (
	"errors"
	"fmt"
)

// Signing stages reported by StageError.
const (
	StageResolution = "resolution"
	StageAssumption = "assumption"
	StageSigning    = "signing"
)

// AuthenticationError indicates that no login strategy produced a session.
type AuthenticationError struct {
	Strategy string // Last strategy attempted, empty if none was applicable
	Cause    error  // The underlying error
}

func (e *AuthenticationError) Error() string {
	if e.Strategy == "" {
		if e.Cause != nil {
			return fmt.Sprintf("authentication failed: %v", e.Cause)
		}
		return "authentication failed: no login strategy configured"
	}
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed (strategy %s): %v", e.Strategy, e.Cause)
	}
	return fmt.Sprintf("authentication failed (strategy %s)", e.Strategy)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(strategy string, cause error) *AuthenticationError {
	return &AuthenticationError{
		Strategy: strategy,
		Cause:    cause,
	}
}

// IsAuthenticationError returns true if the error is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// StoreUnavailableError indicates the secret store could not be reached or
// answered with a server error. Retrying later may succeed.
type StoreUnavailableError struct {
	Operation string // read, write, list, delete, login
	Path      string // Store path being accessed
	Cause     error  // The underlying error
}

func (e *StoreUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("secret store unavailable during %s of %q: %v", e.Operation, e.Path, e.Cause)
	}
	return fmt.Sprintf("secret store unavailable during %s of %q", e.Operation, e.Path)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *StoreUnavailableError) Unwrap() error {
	return e.Cause
}

// NewStoreUnavailableError creates a StoreUnavailableError.
func NewStoreUnavailableError(operation, path string, cause error) *StoreUnavailableError {
	return &StoreUnavailableError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// IsStoreUnavailableError returns true if the error is a StoreUnavailableError.
func IsStoreUnavailableError(err error) bool {
	var storeErr *StoreUnavailableError
	return errors.As(err, &storeErr)
}

// PermissionDeniedError indicates the store explicitly refused an operation.
type PermissionDeniedError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s of %q", e.Operation, e.Path)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *PermissionDeniedError) Unwrap() error {
	return e.Cause
}

// NewPermissionDeniedError creates a PermissionDeniedError.
func NewPermissionDeniedError(operation, path string, cause error) *PermissionDeniedError {
	return &PermissionDeniedError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// IsPermissionDeniedError returns true if the error is a PermissionDeniedError.
func IsPermissionDeniedError(err error) bool {
	var deniedErr *PermissionDeniedError
	return errors.As(err, &deniedErr)
}

// RoleAssumptionError indicates a base identity exists but the token
// exchange for the requested role was rejected or failed.
type RoleAssumptionError struct {
	AppID   string
	RoleARN string
	Cause   error
}

func (e *RoleAssumptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assume role %q for app %q failed: %v", e.RoleARN, e.AppID, e.Cause)
	}
	return fmt.Sprintf("assume role %q for app %q failed", e.RoleARN, e.AppID)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *RoleAssumptionError) Unwrap() error {
	return e.Cause
}

// NewRoleAssumptionError creates a RoleAssumptionError.
func NewRoleAssumptionError(appID, roleARN string, cause error) *RoleAssumptionError {
	return &RoleAssumptionError{
		AppID:   appID,
		RoleARN: roleARN,
		Cause:   cause,
	}
}

// IsRoleAssumptionError returns true if the error is a RoleAssumptionError.
func IsRoleAssumptionError(err error) bool {
	var roleErr *RoleAssumptionError
	return errors.As(err, &roleErr)
}

// SigningInputError indicates a malformed request handed to the signer.
// This is a permanent error - the caller must fix the input.
type SigningInputError struct {
	Field   string // method, url, headers, body, region, service
	Message string
}

func (e *SigningInputError) Error() string {
	return fmt.Sprintf("invalid signing input %s: %s", e.Field, e.Message)
}

// NewSigningInputError creates a SigningInputError.
func NewSigningInputError(field, message string) *SigningInputError {
	return &SigningInputError{
		Field:   field,
		Message: message,
	}
}

// IsSigningInputError returns true if the error is a SigningInputError.
func IsSigningInputError(err error) bool {
	var inputErr *SigningInputError
	return errors.As(err, &inputErr)
}

// MissingFieldError indicates a secret document lacks a required field.
type MissingFieldError struct {
	Path  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("secret %q is missing required field %q", e.Path, e.Field)
}

// NewMissingFieldError creates a MissingFieldError.
func NewMissingFieldError(path, field string) *MissingFieldError {
	return &MissingFieldError{
		Path:  path,
		Field: field,
	}
}

// IsMissingFieldError returns true if the error is a MissingFieldError.
func IsMissingFieldError(err error) bool {
	var missingErr *MissingFieldError
	return errors.As(err, &missingErr)
}

// CredentialsUnavailableError indicates no usable cloud identity exists for an
// application and no fallback is permitted.
type CredentialsUnavailableError struct {
	AppID  string
	Reason string
}

func (e *CredentialsUnavailableError) Error() string {
	return fmt.Sprintf("no cloud credentials for app %q: %s", e.AppID, e.Reason)
}

// NewCredentialsUnavailableError creates a CredentialsUnavailableError.
func NewCredentialsUnavailableError(appID, reason string) *CredentialsUnavailableError {
	return &CredentialsUnavailableError{
		AppID:  appID,
		Reason: reason,
	}
}

// IsCredentialsUnavailableError returns true if the error is a CredentialsUnavailableError.
func IsCredentialsUnavailableError(err error) bool {
	var credErr *CredentialsUnavailableError
	return errors.As(err, &credErr)
}

// StageError tags a request-signing failure with the stage that failed so
// operators can tell "no identity" from "identity present but unauthorized".
type StageError struct {
	Stage string // StageResolution, StageAssumption or StageSigning
	AppID string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sign request for app %q failed at %s stage: %v", e.AppID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError creates a StageError.
func NewStageError(stage, appID string, cause error) *StageError {
	return &StageError{
		Stage: stage,
		AppID: appID,
		Cause: cause,
	}
}

// StageOf returns the failing stage of a signing error, or "" if err is not a StageError.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// ValidationError indicates invalid configuration or input.
// This is a permanent error - retrying won't help without user correction.
type ValidationError struct {
	Field   string // The field that failed validation
	Value   string // The invalid value (redacted for sensitive data)
	Message string // Why validation failed
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
