// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for adpod.
//
// Precedence is ENV > file > defaults. The YAML file is decoded strictly:
// unknown keys and multiple documents are rejected.
package config
