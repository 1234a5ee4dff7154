// SPDX-License-Identifier: MIT

// Package validate provides configuration validation utilities for adpod.
package validate

import (
	"cmp"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Error is a single failed check.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates failed checks so all problems are reported at once.
type Validator struct {
	errors []Error
}

// ValidationError bundles every failed check of one Validator.
type ValidationError struct {
	errors []Error
}

// New creates an empty validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// IsValid reports whether no check has failed.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns the failed checks in the order they were recorded.
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err returns nil or a ValidationError holding a copy of the failures.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// Errors returns the individual failures.
func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// URL checks that value parses, uses one of allowedSchemes (any when empty)
// and names a host. file URLs need a path instead of a host.
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}
	if len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme) {
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, allowedSchemes), value)
		return
	}
	switch {
	case u.Scheme == "file" && u.Path == "":
		v.AddError(field, "file URL must have a path", value)
	case u.Scheme != "file" && u.Host == "":
		v.AddError(field, "URL must have a host", value)
	}
}

func between[T cmp.Ordered](v *Validator, field, kind string, value, minVal, maxVal T) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("%s must be between %v and %v, got %v", kind, minVal, maxVal, value), value)
	}
}

// Range checks minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	between(v, field, "value", value, minVal, maxVal)
}

// FloatRange checks minVal <= value <= maxVal.
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	between(v, field, "value", value, minVal, maxVal)
}

// DurationRange checks minVal <= d <= maxVal.
func (v *Validator) DurationRange(field string, d, minVal, maxVal time.Duration) {
	between(v, field, "duration", d, minVal, maxVal)
}

// Port checks 1 <= port <= 65535.
func (v *Validator) Port(field string, port int) {
	between(v, field, "port", port, 1, 65535)
}

// Positive checks value > 0.
func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("value must be positive, got %d", value), value)
	}
}

// PositiveDuration checks d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf checks value against allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// ListenAddr validates host:port. The host may be empty, localhost or an IP.
func (v *Validator) ListenAddr(field, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		v.AddError(field, fmt.Sprintf("listen host must be an IP or localhost, got %q", host), addr)
		return
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid port %q", port), addr)
		return
	}
	v.Port(field, p)
}
