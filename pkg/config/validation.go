package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags: the refresh-option surface of §4.F
// (refresh_interval unit suffix, refresh_start_date_time format) and the
// table-identity and schema rules of §6.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts only the uppercase level names; Load runs
// ApplyDefaults first, which upper-cases the level.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Tables) == 0 {
		return fmt.Errorf("tables: at least one foreign table must be configured")
	}

	seen := make(map[[2]int]bool)
	for i, t := range cfg.Tables {
		key := [2]int{t.DBID, t.TableID}
		if seen[key] {
			return fmt.Errorf("tables[%d]: duplicate table (db_id=%d, table_id=%d)", i, t.DBID, t.TableID)
		}
		seen[key] = true

		columnIDs := make(map[int]bool)
		for _, c := range t.Columns {
			if columnIDs[c.ColumnID] {
				return fmt.Errorf("tables[%d] %q: duplicate column_id %d", i, t.Name, c.ColumnID)
			}
			columnIDs[c.ColumnID] = true
		}

		if _, err := ParseTableRefreshOptions(t.Options); err != nil {
			return fmt.Errorf("tables[%d] %q: %w", i, t.Name, err)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
