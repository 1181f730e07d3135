// Package config loads and validates the YAML configuration of the
// fleet-server and botnode processes.
//
// Loading expands ${VAR} environment variables in the file before
// parsing, applies defaults and validates. The protocol's fixed timings
// (5s ping interval, 15s inactivity timeout, 1s retry delay) are not
// configurable; they are protocol constants owned by the server and
// engine packages.
package config
