package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/chandrudp29/omniscidb/pkg/catalog"
)

// CreateOptions is the parsed, validated form of the refresh_* options
// recognized at CREATE FOREIGN TABLE time (§4.F).
type CreateOptions struct {
	UpdateType    catalog.UpdateType
	TimingType    catalog.TimingType
	StartDateTime time.Time     // zero unless TimingType == catalog.TimingScheduled
	Interval      time.Duration // zero unless refresh_interval was supplied
	HasInterval   bool
}

// rawCreateOptions mirrors the WITH-clause keys this parser reads; any other
// key in the source map (source path, wrapper type, column defs, ...) is
// left untouched by mapstructure's default (non-ErrorUnused) decode.
type rawCreateOptions struct {
	UpdateType    string `mapstructure:"refresh_update_type"`
	TimingType    string `mapstructure:"refresh_timing_type"`
	StartDateTime string `mapstructure:"refresh_start_date_time"`
	Interval      string `mapstructure:"refresh_interval"`
}

var intervalPattern = regexp.MustCompile(`^([0-9]+)([SHD])$`)

// ParseCreateOptions decodes and validates the refresh_* subset of a
// CREATE FOREIGN TABLE ... WITH (...) option map, per the table in §4.F.
// now is the moment of table creation, against which refresh_start_date_time
// is validated; callers pass time.Now() outside tests.
func ParseCreateOptions(raw map[string]any, now time.Time) (CreateOptions, error) {
	var parsed rawCreateOptions
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &parsed})
	if err != nil {
		return CreateOptions{}, fmt.Errorf("scheduler: building option decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return CreateOptions{}, fmt.Errorf("scheduler: decoding refresh options: %w", err)
	}

	opts := CreateOptions{UpdateType: catalog.UpdateAll, TimingType: catalog.TimingManual}

	if parsed.UpdateType != "" {
		switch catalog.UpdateType(parsed.UpdateType) {
		case catalog.UpdateAll, catalog.UpdateAppend:
			opts.UpdateType = catalog.UpdateType(parsed.UpdateType)
		default:
			return CreateOptions{}, fmt.Errorf("scheduler: %w: %q", ErrInvalidRefreshUpdateType, parsed.UpdateType)
		}
	}

	if parsed.TimingType != "" {
		switch catalog.TimingType(parsed.TimingType) {
		case catalog.TimingManual, catalog.TimingScheduled:
			opts.TimingType = catalog.TimingType(parsed.TimingType)
		default:
			return CreateOptions{}, fmt.Errorf("scheduler: %w: %q", ErrInvalidRefreshTimingType, parsed.TimingType)
		}
	}

	if opts.TimingType == catalog.TimingScheduled {
		if parsed.StartDateTime == "" {
			return CreateOptions{}, ErrMissingStartDateTime
		}
		start, err := time.Parse(time.RFC3339, parsed.StartDateTime)
		if err != nil {
			return CreateOptions{}, fmt.Errorf("scheduler: refresh_start_date_time %q is not a valid RFC3339 timestamp: %v", parsed.StartDateTime, err)
		}
		if start.Before(now) {
			return CreateOptions{}, fmt.Errorf("scheduler: %w: %q", ErrPastStartDateTime, parsed.StartDateTime)
		}
		opts.StartDateTime = start
	}

	if parsed.Interval != "" {
		d, err := parseInterval(parsed.Interval)
		if err != nil {
			return CreateOptions{}, err
		}
		opts.Interval = d
		opts.HasInterval = true
	}

	return opts, nil
}

// parseInterval parses an integer immediately followed by a unit suffix of
// S (seconds), H (hours), or D (days) into a time.Duration.
func parseInterval(s string) (time.Duration, error) {
	m := intervalPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("scheduler: %w: %q", ErrInvalidRefreshInterval, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("scheduler: %w: %q", ErrInvalidRefreshInterval, s)
	}
	switch m[2] {
	case "S":
		return time.Duration(n) * time.Second, nil
	case "H":
		return time.Duration(n) * time.Hour, nil
	case "D":
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("scheduler: %w: %q", ErrInvalidRefreshInterval, s)
	}
}

// ToRefreshOptions converts the parsed options into the catalog's persisted
// shape, for attaching to a ForeignTable at creation time.
func (o CreateOptions) ToRefreshOptions() catalog.RefreshOptions {
	ro := catalog.RefreshOptions{
		UpdateType: o.UpdateType,
		TimingType: o.TimingType,
	}
	if o.TimingType == catalog.TimingScheduled {
		ro.StartDateTime = o.StartDateTime.Format(time.RFC3339)
	}
	if o.HasInterval {
		ro.IntervalSeconds = int64(o.Interval / time.Second)
	}
	return ro
}
