package scheduler

import "errors"

// ErrInvalidRefreshUpdateType is returned when refresh_update_type is set to
// anything other than "ALL" or "APPEND" (§4.F).
var ErrInvalidRefreshUpdateType = errors.New("invalid refresh_update_type")

// ErrInvalidRefreshTimingType is returned when refresh_timing_type is set to
// anything other than "MANUAL" or "SCHEDULED".
var ErrInvalidRefreshTimingType = errors.New("invalid refresh_timing_type")

// ErrMissingStartDateTime is returned when refresh_timing_type is SCHEDULED
// but refresh_start_date_time was not supplied.
var ErrMissingStartDateTime = errors.New("refresh_start_date_time is required when refresh_timing_type is SCHEDULED")

// ErrPastStartDateTime is returned when refresh_start_date_time parses to a
// time strictly before the moment the table is created.
var ErrPastStartDateTime = errors.New("refresh_start_date_time must not be in the past")

// ErrInvalidRefreshInterval is returned when refresh_interval isn't an
// integer immediately followed by one of the unit suffixes S, H, or D.
var ErrInvalidRefreshInterval = errors.New("invalid refresh_interval")
