// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("ADPOD_TEST_STRING", "from-env")
	t.Setenv("ADPOD_TEST_STRING_EMPTY", "")
	t.Setenv("ADPOD_TEST_PASSWORD", "secret123")

	assert.Equal(t, "from-env", ParseString("ADPOD_TEST_STRING", "default"))
	assert.Equal(t, "default", ParseString("ADPOD_TEST_STRING_UNSET", "default"))
	assert.Equal(t, "default", ParseString("ADPOD_TEST_STRING_EMPTY", "default"))
	assert.Equal(t, "secret123", ParseString("ADPOD_TEST_PASSWORD", "default"))
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  int
	}{
		{"valid", "42", true, 42},
		{"negative", "-3", true, -3},
		{"invalid falls back", "forty", true, 7},
		{"empty falls back", "", true, 7},
		{"unset", "", false, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("ADPOD_TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, ParseInt("ADPOD_TEST_INT", 7))
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"seconds", "5s", 5 * time.Second},
		{"millis", "250ms", 250 * time.Millisecond},
		{"bare number is invalid", "30", time.Second},
		{"garbage", "soon", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ADPOD_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, ParseDuration("ADPOD_TEST_DURATION", time.Second))
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes"} {
		t.Setenv("ADPOD_TEST_BOOL", v)
		assert.True(t, ParseBool("ADPOD_TEST_BOOL", false), v)
	}
	for _, v := range []string{"false", "0", "No"} {
		t.Setenv("ADPOD_TEST_BOOL", v)
		assert.False(t, ParseBool("ADPOD_TEST_BOOL", true), v)
	}
	t.Setenv("ADPOD_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("ADPOD_TEST_BOOL", true))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("ADPOD_TEST_FLOAT", "2.5")
	assert.Equal(t, 2.5, ParseFloat("ADPOD_TEST_FLOAT", 1))
	t.Setenv("ADPOD_TEST_FLOAT", "x")
	assert.Equal(t, 1.0, ParseFloat("ADPOD_TEST_FLOAT", 1))
}
