package config

import (
	"errors"
	"fmt"
	"strings"

	overlay "github.com/goliatone/go-options-overlay"
	"github.com/goliatone/go-options-overlay/internal/hydrate"
	"github.com/goliatone/go-options-overlay/pkg/store"
)

// ErrDefinitionShape reports an override entry with neither or both of
// name and values.
var ErrDefinitionShape = errors.New("config: override needs exactly one of name or values")

// Definition declares one override, or a batch of them through Values
// (name -> value) sharing the other fields.
type Definition struct {
	Variant  string         `json:"variant"`
	Name     string         `json:"name,omitempty"`
	Value    any            `json:"value,omitempty"`
	Values   map[string]any `json:"values,omitempty"`
	Origin   string         `json:"origin"`
	Type     string         `json:"type"`
	Priority int            `json:"priority,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
}

// Batch reports whether d declares several options at once.
func (d Definition) Batch() bool { return len(d.Values) > 0 }

var definitionDecoder = hydrate.NewDecoder[Definition](
	hydrate.WithPreHook[Definition](defaultDefinition),
	hydrate.WithPostHook[Definition](validateDefinition),
	hydrate.WithStrict[Definition](),
)

func defaultDefinition(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	setDefault(payload, "variant", string(overlay.VariantPlain))
	setDefault(payload, "origin", overlay.OriginPlatform)
	setDefault(payload, "type", string(overlay.TypeOption))
	return payload, nil
}

func setDefault(payload map[string]any, key, value string) {
	if current, ok := payload[key].(string); ok && strings.TrimSpace(current) != "" {
		return
	}
	payload[key] = value
}

func validateDefinition(_ hydrate.Context, d *Definition) error {
	d.Name = strings.TrimSpace(d.Name)
	if (d.Name == "") == (len(d.Values) == 0) {
		return ErrDefinitionShape
	}
	if _, err := overlay.ParseVariant(d.Variant); err != nil {
		return err
	}
	if _, err := store.ParseNamespace(d.Type); err != nil {
		return err
	}
	if d.Strategy != "" && !overlay.DBStrategy(d.Strategy).Valid() {
		return fmt.Errorf("%w: %q", overlay.ErrInvalidStrategy, d.Strategy)
	}
	return nil
}

// Definitions decodes the overrides section.
func (c *Config) Definitions() ([]Definition, error) {
	out := make([]Definition, 0, len(c.Overrides))
	for i, payload := range c.Overrides {
		def, err := definitionDecoder.Decode(hydrate.Context{
			Source: c.source,
			Key:    fmt.Sprintf("overrides[%d]", i),
		}, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}
