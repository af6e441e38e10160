package envoverride

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jaxxstorm/scmver/internal/errs"
)

// Metadata is a decoded pretend-metadata overlay. Every field is a
// pointer so the caller can tell "not supplied" from "supplied as the
// zero value" when applying the overlay.
type Metadata struct {
	Tag          *string
	Distance     *int
	Node         *string
	Dirty        *bool
	Branch       *string
	NodeDate     *time.Time
	Time         *time.Time
	Preformatted *bool
}

// CoerceMetadata validates the TOML-native types of a decoded
// pretend-metadata table: integer for distance, boolean for
// dirty/preformatted, ISO date for node_date, ISO datetime for time,
// strings elsewhere. A mistyped value (e.g. distance="3") is an
// OverrideDecodeError, not a silent coercion.
func CoerceMetadata(source string, fields map[string]any) (*Metadata, error) {
	md := &Metadata{}
	for key, raw := range fields {
		var err error
		switch key {
		case "tag":
			md.Tag, err = coerceString(key, raw)
		case "node":
			md.Node, err = coerceString(key, raw)
		case "branch":
			md.Branch, err = coerceString(key, raw)
		case "distance":
			md.Distance, err = coerceInt(key, raw)
		case "dirty":
			md.Dirty, err = coerceBool(key, raw)
		case "preformatted":
			md.Preformatted, err = coerceBool(key, raw)
		case "node_date":
			md.NodeDate, err = coerceDate(key, raw)
		case "time":
			md.Time, err = coerceDateTime(key, raw)
		}
		if err != nil {
			return nil, &errs.OverrideDecodeError{Source: source, Reason: err.Error()}
		}
	}
	return md, nil
}

func coerceString(key string, raw any) (*string, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string, got %T", key, raw)
	}
	return &s, nil
}

func coerceInt(key string, raw any) (*int, error) {
	switch n := raw.(type) {
	case int64:
		v := int(n)
		return &v, nil
	case int:
		return &n, nil
	default:
		return nil, fmt.Errorf("%s must be an integer, got %T", key, raw)
	}
}

func coerceBool(key string, raw any) (*bool, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("%s must be a boolean, got %T", key, raw)
	}
	return &b, nil
}

func coerceDate(key string, raw any) (*time.Time, error) {
	switch d := raw.(type) {
	case toml.LocalDate:
		t := d.AsTime(time.UTC)
		return &t, nil
	case time.Time:
		t := d.UTC()
		return &t, nil
	case string:
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("%s must be an ISO date: %v", key, err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("%s must be a TOML date, got %T", key, raw)
	}
}

func coerceDateTime(key string, raw any) (*time.Time, error) {
	switch d := raw.(type) {
	case time.Time:
		t := d.UTC()
		return &t, nil
	case toml.LocalDateTime:
		t := d.AsTime(time.UTC)
		return &t, nil
	case toml.LocalDate:
		t := d.AsTime(time.UTC)
		return &t, nil
	case string:
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return nil, fmt.Errorf("%s must be an ISO datetime: %v", key, err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("%s must be a TOML datetime, got %T", key, raw)
	}
}
