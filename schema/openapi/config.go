package openapi

import (
	"strings"
)

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	operation      operationConfig
	contentType    string
	responses      map[string]responseConfig
	rootComponent  string
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Preferences",
			Version: "1.0.0",
		},
		operation: operationConfig{
			Path:   "/preferences",
			Method: "put",
		},
		contentType: "application/json",
		responses: map[string]responseConfig{
			"204": {Description: "Saved"},
			"422": {Description: "Some values are not valid"},
		},
		rootComponent: "Preferences",
	}
}

// GeneratorOption configures the generated document.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// WithInfo sets the info block. Empty strings keep the defaults.
func WithInfo(title, version, description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		cfg.info.Description = description
	}
}

// WithOperation sets the path and method of the save operation. The
// operation id defaults to "<method>:<path>".
func WithOperation(path, method, operationID, summary string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if path != "" {
			cfg.operation.Path = path
		}
		if method != "" {
			cfg.operation.Method = strings.ToLower(method)
		}
		if operationID != "" {
			cfg.operation.OperationID = operationID
		}
		cfg.operation.Summary = summary
	}
}

// WithContentType sets the request body content type.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType != "" {
			cfg.contentType = contentType
		}
	}
}

// WithResponse registers or replaces the response for status.
func WithResponse(status, description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		cfg.responses[status] = responseConfig{Description: description}
	}
}

// WithRootComponent names the component schema holding the preference
// object (default: Preferences).
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if name != "" {
			cfg.rootComponent = name
		}
	}
}
