// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor dispatches descriptor readiness to handlers through an
// executor. Registrations are one-shot: a descriptor is disarmed while its
// task runs and re-armed when the task returns, so each channel sees at
// most one task at a time. Linux uses epoll; other platforms report
// api.ErrNotSupported.
package reactor
