// Package validation checks and repairs untrusted generation-rules
// documents before they reach the record generator.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmrzaf/fwgen/internal/domain"
	"github.com/mmrzaf/fwgen/internal/generators"
	"github.com/mmrzaf/fwgen/internal/logging"
	"github.com/mmrzaf/fwgen/internal/picture"
)

var (
	ErrStructural = errors.New("rules document structural error")
	ErrMissingKey = errors.New("rules field missing required key")
)

type Validator struct {
	logger *logging.Logger
}

func NewValidator(logger *logging.Logger) *Validator {
	return &Validator{logger: logger.WithComponent("validator")}
}

// ValidateAndClean returns a new, repaired copy of doc. The caller's
// document is never mutated. Structural damage and missing per-field keys
// are fatal; a conditional_categorical field without a parent is healed to
// categorical_weighted; missing lengths are inferred from original_spec.
func (v *Validator) ValidateAndClean(doc *domain.RulesDocument) (*domain.RulesDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrStructural)
	}

	var missing []string
	if doc.GlobalConfig == nil {
		missing = append(missing, "global_config")
	}
	if doc.Fields == nil {
		missing = append(missing, "fields")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing top-level keys: %s", ErrStructural, strings.Join(missing, ", "))
	}

	cleaned := copyDocument(doc)

	seen := make(map[string]struct{}, len(cleaned.Fields))
	for i := range cleaned.Fields {
		field := &cleaned.Fields[i]
		if err := v.checkField(field); err != nil {
			return nil, err
		}
		if _, dup := seen[field.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field name %q", ErrStructural, field.Name)
		}
		seen[field.Name] = struct{}{}

		v.healConditional(field)

		if err := v.inferLength(field); err != nil {
			return nil, err
		}

		if !generators.Known(field.Generation.Method) {
			return nil, fmt.Errorf("%w: field %q uses %q", generators.ErrUnknownMethod, field.Name, field.Generation.Method)
		}
	}

	return cleaned, nil
}

func (v *Validator) checkField(field *domain.FieldRule) error {
	if field.Name == "" {
		return fmt.Errorf("%w: 'name'", ErrMissingKey)
	}
	if field.GenerationOrder == nil {
		return fmt.Errorf("%w: field %q lacks 'generation_order'", ErrMissingKey, field.Name)
	}
	if field.Generation == nil {
		return fmt.Errorf("%w: field %q lacks 'generation'", ErrMissingKey, field.Name)
	}
	if field.Generation.Method == "" {
		return fmt.Errorf("%w: field %q lacks 'generation.method'", ErrMissingKey, field.Name)
	}
	if field.Generation.Parameters == nil {
		return fmt.Errorf("%w: field %q lacks 'generation.parameters'", ErrMissingKey, field.Name)
	}
	return nil
}

// healConditional rewrites a conditional_categorical field whose parent is
// empty or absent into a plain categorical_weighted field. Without a parent
// there is no dependency to resolve; confining the repair to the one field
// keeps the rest of the document usable.
func (v *Validator) healConditional(field *domain.FieldRule) {
	if field.Generation.Method != generators.MethodConditionalCategorical {
		return
	}
	parent, _ := field.Generation.Parameters["parent_field"].(string)
	if strings.TrimSpace(parent) != "" {
		return
	}

	v.logger.Warn("field %q: conditional_categorical without parent_field, rewriting to categorical_weighted", field.Name)
	field.Generation.Method = generators.MethodCategoricalWeighted
	delete(field.Generation.Parameters, "parent_field")
	delete(field.Generation.Parameters, "mappings")
}

// inferLength derives a missing declared length from the field's picture
// clause so the document is self-consistent with the wire format it will
// produce.
func (v *Validator) inferLength(field *domain.FieldRule) error {
	if _, ok := field.Generation.Parameters["length"]; ok {
		return nil
	}
	if field.OriginalSpec == "" {
		return nil
	}

	format, err := picture.Parse(field.OriginalSpec)
	if err != nil {
		return fmt.Errorf("field %q: %w", field.Name, err)
	}
	field.Generation.Parameters["length"] = format.ByteLength
	v.logger.Debug("field %q: inferred length %d from %q", field.Name, format.ByteLength, field.OriginalSpec)
	return nil
}

func copyDocument(doc *domain.RulesDocument) *domain.RulesDocument {
	out := &domain.RulesDocument{
		GlobalConfig: &domain.GlobalConfig{},
		Fields:       make([]domain.FieldRule, len(doc.Fields)),
	}
	*out.GlobalConfig = *doc.GlobalConfig

	for i, field := range doc.Fields {
		copied := field
		if field.Generation != nil {
			copied.Generation = &domain.GenerationSpec{
				Method:     field.Generation.Method,
				Parameters: copyParams(field.Generation.Parameters),
			}
		}
		copied.Dependencies = append([]domain.Dependency(nil), field.Dependencies...)
		out.Fields[i] = copied
	}
	return out
}

func copyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyParams(nested)
			continue
		}
		out[k] = v
	}
	return out
}
