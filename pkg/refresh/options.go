package refresh

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options is the recognized WITH-clause key set for a REFRESH FOREIGN
// TABLES ... WITH (...) call (§4.E).
type Options struct {
	Evict bool `mapstructure:"evict"`
}

// ParseOptions decodes a freeform option map into Options, rejecting any key
// other than "evict" with ErrUnknownRefreshOption and any non-bool evict
// value with ErrInvalidRefreshOption.
func ParseOptions(raw map[string]any) (Options, error) {
	for k := range raw {
		if k != "evict" {
			return Options{}, fmt.Errorf("refresh: %w: %q", ErrUnknownRefreshOption, k)
		}
	}

	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return Options{}, fmt.Errorf("refresh: building option decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("refresh: %w: %v", ErrInvalidRefreshOption, err)
	}
	return opts, nil
}
