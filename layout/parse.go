package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/internal/hydrate"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format names a layout document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks a format from the file extension. Unknown extensions
// are read as YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// LoadFile reads and parses the layout at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: read %s: %w", path, err)
	}
	return parse(hydrate.Context{Source: path, Format: string(FormatFromPath(path))}, data, FormatFromPath(path))
}

// Parse decodes a layout document. Groups need unique ids and keys must be
// unique within their group. Items without a type are strings; defaults are
// coerced to the declared type.
func Parse(data []byte, format Format) (*Definition, error) {
	return parse(hydrate.Context{Format: string(format)}, data, format)
}

func parse(ctx hydrate.Context, data []byte, format Format) (*Definition, error) {
	raw := map[string]any{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatYAML, "":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("layout: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("layout: parse %s: %w", ctx, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	decoder := hydrate.NewDecoder[Definition](
		hydrate.WithDisallowUnknownFields[Definition](),
		hydrate.WithPostHook[Definition](normalizeItems),
		hydrate.WithPostHook[Definition](func(_ hydrate.Context, d *Definition) error {
			return d.check()
		}),
	)
	definition, err := decoder.Decode(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return &definition, nil
}

func normalizeItems(_ hydrate.Context, d *Definition) error {
	for gi := range d.Groups {
		for ii := range d.Groups[gi].Items {
			item := &d.Groups[gi].Items[ii]
			if item.Type == "" {
				item.Type = string(prefs.TypeString)
			}
			value, err := coerce(prefs.ItemType(item.Type), item.Default)
			if err != nil {
				return fmt.Errorf("default of %q: %w", item.Key, err)
			}
			item.Default = value
		}
	}
	return nil
}

// coerce converts decoder-specific numeric kinds (float64 from JSON, int64
// from TOML) to the Go type of the item.
func coerce(kind prefs.ItemType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch kind {
	case prefs.TypeInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			return int(v), nil
		}
		return nil, fmt.Errorf("%v (%T) is not an integer", value, value)
	case prefs.TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, fmt.Errorf("%v (%T) is not a number", value, value)
	case prefs.TypeBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%v (%T) is not a boolean", value, value)
	case prefs.TypeString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%v (%T) is not a string", value, value)
	default:
		return hydrate.Normalize(value), nil
	}
}

// Coerce converts a value to the Go type of kind, parsing strings for scalar
// kinds. It is used to turn command line input into typed values.
func Coerce(kind prefs.ItemType, value any) (any, error) {
	text, ok := value.(string)
	if !ok {
		return coerce(kind, value)
	}
	switch kind {
	case prefs.TypeInt, prefs.TypeFloat, prefs.TypeBool, prefs.TypeJSON:
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, fmt.Errorf("layout: parse %q as %s: %w", text, kind, err)
		}
		return coerce(kind, parsed)
	default:
		return text, nil
	}
}
