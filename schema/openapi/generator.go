// Package openapi describes a preference layout as an OpenAPI 3 document.
// The layout becomes one component schema whose properties are the item keys;
// the document exposes it as the request body of a save operation.
package openapi

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/layout"
)

// Generate builds the document for definition.
func Generate(definition *layout.Definition, opts ...GeneratorOption) (map[string]any, error) {
	if definition == nil {
		return nil, fmt.Errorf("openapi: layout definition is required")
	}
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	root, err := buildRoot(definition)
	if err != nil {
		return nil, err
	}

	info := map[string]any{
		"title":   cfg.info.Title,
		"version": cfg.info.Version,
	}
	if cfg.info.Description != "" {
		info["description"] = cfg.info.Description
	}
	return map[string]any{
		"openapi": cfg.openAPIVersion,
		"info":    info,
		"paths":   buildPaths(cfg),
		"components": map[string]any{
			"schemas": map[string]any{cfg.rootComponent: root},
		},
	}, nil
}

func buildRoot(definition *layout.Definition) (map[string]any, error) {
	properties := map[string]any{}
	groups := make([]any, 0, len(definition.Groups))
	for _, group := range definition.Groups {
		keys := make([]any, 0, len(group.Items))
		for _, item := range group.Items {
			keys = append(keys, item.Key)
			if _, seen := properties[item.Key]; seen {
				continue
			}
			schema, err := itemSchema(group.ID, item)
			if err != nil {
				return nil, err
			}
			properties[item.Key] = schema
		}
		entry := map[string]any{"id": group.ID, "keys": keys}
		if group.Label != "" {
			entry["label"] = group.Label
		}
		groups = append(groups, entry)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
		"x-groups":             groups,
	}, nil
}

func itemSchema(group string, item layout.ItemDefinition) (map[string]any, error) {
	kind := prefs.ItemType(item.Type)
	schema := map[string]any{}
	switch kind {
	case prefs.TypeString, "":
		schema["type"] = "string"
	case prefs.TypeBool:
		schema["type"] = "boolean"
	case prefs.TypeInt:
		schema["type"] = "integer"
	case prefs.TypeFloat:
		schema["type"] = "number"
	case prefs.TypeEnum:
		if len(item.Options) > 0 {
			schema["enum"] = append([]any{}, item.Options...)
			schema["type"] = scalarType(item.Options[0])
		}
	case prefs.TypeJSON:
	default:
		return nil, fmt.Errorf("openapi: item %q has unsupported type %q", item.Key, item.Type)
	}

	if item.Label != "" {
		schema["title"] = item.Label
	}
	if item.Default != nil {
		schema["default"] = item.Default
	}
	if item.Message != "" {
		schema["description"] = item.Message
	}
	if len(item.Range) == 2 {
		schema["minimum"] = item.Range[0]
		schema["maximum"] = item.Range[1]
	}
	if item.Rule != "" {
		schema["x-rule"] = item.Rule
	}
	schema["x-group"] = group
	return schema, nil
}

func scalarType(value any) string {
	switch value.(type) {
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64:
		return "number"
	default:
		return "string"
	}
}

func buildPaths(cfg generatorConfig) map[string]any {
	responses := map[string]any{}
	statuses := make([]string, 0, len(cfg.responses))
	for status := range cfg.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		responses[status] = map[string]any{"description": cfg.responses[status].Description}
	}

	operationID := cfg.operation.OperationID
	if operationID == "" {
		operationID = fmt.Sprintf("%s:%s", cfg.operation.Method, cfg.operation.Path)
	}
	operation := map[string]any{
		"operationId": operationID,
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				cfg.contentType: map[string]any{
					"schema": map[string]any{"$ref": "#/components/schemas/" + cfg.rootComponent},
				},
			},
		},
		"responses": responses,
	}
	if cfg.operation.Summary != "" {
		operation["summary"] = cfg.operation.Summary
	}
	return map[string]any{
		cfg.operation.Path: map[string]any{cfg.operation.Method: operation},
	}
}
