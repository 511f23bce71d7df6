package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

const (
	maxOptionKeys      = 32
	maxOptionKeyLen    = 64
	maxOptionStringLen = 1024
)

// ExtraOptions is a small bag of type-specific item settings (binding, lamination,
// photo finish, ...). Values are strings, numbers or booleans. Payment logic never
// reads it.
type ExtraOptions map[string]any

func (o ExtraOptions) Validate() error {
	if len(o) > maxOptionKeys {
		return apperr.Validationf("extra_options has %d keys, at most %d allowed", len(o), maxOptionKeys)
	}
	for k, v := range o {
		if k == "" || len(k) > maxOptionKeyLen {
			return apperr.Validationf("extra_options key %q must be 1 to %d bytes", k, maxOptionKeyLen)
		}
		switch x := v.(type) {
		case string:
			if len(x) > maxOptionStringLen {
				return apperr.Validationf("extra_options %q exceeds %d bytes", k, maxOptionStringLen)
			}
		case bool, float64, float32, int, int32, int64, json.Number:
		default:
			return apperr.Validationf("extra_options %q must be a string, number or boolean", k)
		}
	}
	return nil
}

func (o ExtraOptions) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(o))
	if err != nil {
		return nil, fmt.Errorf("marshal extra_options: %w", err)
	}
	return b, nil
}

func (o *ExtraOptions) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan extra_options: unsupported type %T", src)
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("scan extra_options: %w", err)
	}
	*o = m
	return nil
}
