// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics and debug introspection for hioload-frame.
//
// Provides:
//   - Config loading from YAML and HIOLOAD_* environment with validation
//   - Loader with file watching and reload hooks
//   - slog logger construction
//   - Prometheus channel counters, safe to use through a nil pointer
//   - Debug probe registration and dumping
package control
