// Package layout loads preference layouts from YAML, JSON or TOML documents
// and turns them into coordinator inputs: the grouped preference map, the
// per-key defaults and the validation rules.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/validate"
)

var (
	ErrDuplicateGroup = errors.New("layout: duplicate group id")
	ErrDuplicateKey   = errors.New("layout: duplicate item key")
	ErrInvalidRange   = errors.New("layout: invalid range")
)

// ItemDefinition describes one editable preference.
type ItemDefinition struct {
	Key     string `mapstructure:"key"`
	Type    string `mapstructure:"type"`
	Label   string `mapstructure:"label"`
	Default any    `mapstructure:"default"`
	Rule    string `mapstructure:"rule"`
	Message string `mapstructure:"message"`
	Options []any  `mapstructure:"options"`
	// Range holds the inclusive [min, max] of an int or float item.
	Range []float64 `mapstructure:"range"`
}

// GroupDefinition describes one tab of the editor.
type GroupDefinition struct {
	ID    string           `mapstructure:"id"`
	Label string           `mapstructure:"label"`
	Items []ItemDefinition `mapstructure:"items"`
}

// Definition is a parsed layout document.
type Definition struct {
	Groups []GroupDefinition `mapstructure:"groups"`
}

// Define returns the preference map with every item at its default value.
func (d *Definition) Define() prefs.PreferenceMap {
	return d.Mapper(nil).Define()
}

// Mapper binds the definition to a baseline. The returned provider seeds each
// item with its baseline value, falling back to the item default.
func (d *Definition) Mapper(baseline prefs.Baseline) prefs.LayoutProvider {
	return mapper{definition: d, baseline: baseline}
}

// Defaults returns the default value of every item that declares one.
func (d *Definition) Defaults() prefs.Values {
	values := prefs.Values{}
	if d == nil {
		return values
	}
	for _, group := range d.Groups {
		for _, item := range group.Items {
			if item.Default != nil {
				values[item.Key] = item.Default
			}
		}
	}
	return values
}

// Rules returns the validation rules declared by items, in layout order. Keys
// that appear in several groups contribute their first rule. Items without a
// rule get oneOf for enum options and between for a range.
func (d *Definition) Rules() []validate.Rule {
	if d == nil {
		return nil
	}
	var rules []validate.Rule
	seen := map[string]bool{}
	for _, group := range d.Groups {
		for _, item := range group.Items {
			if seen[item.Key] {
				continue
			}
			rule, ok := item.rule()
			if !ok {
				continue
			}
			seen[item.Key] = true
			rules = append(rules, rule)
		}
	}
	return rules
}

// rule returns the item's own rule or, failing that, the rule implied by its
// options or range.
func (i ItemDefinition) rule() (validate.Rule, bool) {
	kind := prefs.ItemType(i.Type)
	rule := validate.Rule{Key: i.Key, Type: kind, Expr: i.Rule, Message: i.Message}
	switch {
	case i.Rule != "":
		return rule, true
	case kind == prefs.TypeEnum && len(i.Options) > 0:
		list, err := json.Marshal(i.Options)
		if err != nil {
			return validate.Rule{}, false
		}
		rule.Expr = fmt.Sprintf("%s(value, %s)", validate.FuncOneOf, list)
		if rule.Message == "" {
			names := make([]string, 0, len(i.Options))
			for _, option := range i.Options {
				names = append(names, fmt.Sprint(option))
			}
			rule.Message = "must be one of " + strings.Join(names, ", ")
		}
		return rule, true
	case len(i.Range) == 2:
		low, high := formatBound(i.Range[0]), formatBound(i.Range[1])
		rule.Expr = fmt.Sprintf("%s(value, %s, %s)", validate.FuncBetween, low, high)
		if rule.Message == "" {
			rule.Message = fmt.Sprintf("must be between %s and %s", low, high)
		}
		return rule, true
	}
	return validate.Rule{}, false
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Item returns the first definition of key.
func (d *Definition) Item(key string) (ItemDefinition, bool) {
	if d == nil {
		return ItemDefinition{}, false
	}
	for _, group := range d.Groups {
		for _, item := range group.Items {
			if item.Key == key {
				return item, true
			}
		}
	}
	return ItemDefinition{}, false
}

// Group returns the definition of the group with id.
func (d *Definition) Group(id string) (GroupDefinition, bool) {
	if d == nil {
		return GroupDefinition{}, false
	}
	for _, group := range d.Groups {
		if group.ID == id {
			return group, true
		}
	}
	return GroupDefinition{}, false
}

// Keys returns every distinct item key in layout order.
func (d *Definition) Keys() []string {
	if d == nil {
		return nil
	}
	var keys []string
	seen := map[string]bool{}
	for _, group := range d.Groups {
		for _, item := range group.Items {
			if !seen[item.Key] {
				seen[item.Key] = true
				keys = append(keys, item.Key)
			}
		}
	}
	return keys
}

func (d *Definition) check() error {
	groups := map[string]bool{}
	for i, group := range d.Groups {
		if group.ID == "" {
			return fmt.Errorf("layout: group %d has no id", i)
		}
		if groups[group.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateGroup, group.ID)
		}
		groups[group.ID] = true

		keys := map[string]bool{}
		for j, item := range group.Items {
			if item.Key == "" {
				return fmt.Errorf("layout: item %d of group %q has no key", j, group.ID)
			}
			if keys[item.Key] {
				return fmt.Errorf("%w: %q in group %q", ErrDuplicateKey, item.Key, group.ID)
			}
			keys[item.Key] = true
			if err := item.checkRange(); err != nil {
				return fmt.Errorf("layout: item %q: %w", item.Key, err)
			}
		}
	}
	return nil
}

func (i ItemDefinition) checkRange() error {
	if i.Range == nil {
		return nil
	}
	switch prefs.ItemType(i.Type) {
	case prefs.TypeInt, prefs.TypeFloat:
	default:
		return fmt.Errorf("%w: range needs an int or float item, got %q", ErrInvalidRange, i.Type)
	}
	if len(i.Range) != 2 {
		return fmt.Errorf("%w: want [min, max], got %d bounds", ErrInvalidRange, len(i.Range))
	}
	if i.Range[0] > i.Range[1] {
		return fmt.Errorf("%w: min %v is above max %v", ErrInvalidRange, i.Range[0], i.Range[1])
	}
	return nil
}

type mapper struct {
	definition *Definition
	baseline   prefs.Baseline
}

func (m mapper) Define() prefs.PreferenceMap {
	if m.definition == nil {
		return prefs.PreferenceMap{}
	}
	groups := make(prefs.PreferenceMap, 0, len(m.definition.Groups))
	for _, group := range m.definition.Groups {
		items := make([]prefs.PreferenceItem, 0, len(group.Items))
		for _, item := range group.Items {
			value := item.Default
			if m.baseline != nil {
				if saved, ok := m.baseline.Get(item.Key); ok {
					value = saved
				}
			}
			items = append(items, prefs.PreferenceItem{
				Key:   item.Key,
				Value: value,
				Type:  prefs.ItemType(item.Type),
			})
		}
		groups = append(groups, prefs.PreferenceGroup{ID: group.ID, Items: items})
	}
	return groups
}
