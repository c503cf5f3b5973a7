package routing

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"message-gateway/internal/common/errors"
)

// ValidatorFunc represents a validation function
type ValidatorFunc func() error

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidateRequired checks if a field is not empty
func ValidateRequired(value, fieldName string) error {
	if value == "" {
		return ValidationError{
			Field:   fieldName,
			Message: "is required",
			Value:   value,
		}
	}
	return nil
}

// ValidateNotEmpty checks that a list has at least one element and no empty ones
func ValidateNotEmpty(values []string, fieldName string) error {
	if len(values) == 0 {
		return ValidationError{Field: fieldName, Message: "must not be empty"}
	}
	for i, v := range values {
		if v == "" {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", fieldName, i),
				Message: "is required",
			}
		}
	}
	return nil
}

// RunValidators runs multiple validators and returns the first error
func RunValidators(validators ...ValidatorFunc) error {
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// UniqueStrings drops repeated values, keeping the first occurrence
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// SliceContains checks if a slice contains a value
func SliceContains[T comparable](slice []T, value T) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}

// nodePair is one key/value entry of a YAML mapping
type nodePair struct {
	key   string
	value *yaml.Node
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// mappingPairs returns the entries of a mapping node in document order
func mappingPairs(node *yaml.Node, field string) ([]nodePair, error) {
	node = resolveAlias(node)
	if node == nil || node.Kind == 0 {
		return nil, mappingError(field, "is required")
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = resolveAlias(node.Content[0])
	}
	if node.Kind != yaml.MappingNode {
		return nil, mappingError(field, "must be a mapping")
	}
	if len(node.Content) == 0 {
		return nil, mappingError(field, "must not be empty")
	}

	pairs := make([]nodePair, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolveAlias(node.Content[i])
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return nil, mappingError(field, "keys must be non-empty strings")
		}
		if _, dup := seen[key.Value]; dup {
			return nil, mappingError(fmt.Sprintf("%s.%s", field, key.Value), "is defined twice")
		}
		seen[key.Value] = struct{}{}
		pairs = append(pairs, nodePair{key: key.Value, value: resolveAlias(node.Content[i+1])})
	}
	return pairs, nil
}

// scalarValue returns the non-empty string held by a scalar node
func scalarValue(node *yaml.Node, field string) (string, error) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return "", mappingError(field, "must be an endpoint name")
	}
	if node.Value == "" {
		return "", mappingError(field, "must not be empty")
	}
	return node.Value, nil
}

// scalarList accepts a single scalar or a sequence of scalars
func scalarList(node *yaml.Node, field string) ([]string, error) {
	switch {
	case node == nil:
		return nil, mappingError(field, "is required")
	case node.Kind == yaml.ScalarNode:
		value, err := scalarValue(node, field)
		if err != nil {
			return nil, err
		}
		return []string{value}, nil
	case node.Kind == yaml.SequenceNode:
		if len(node.Content) == 0 {
			return nil, mappingError(field, "must not be empty")
		}
		values := make([]string, 0, len(node.Content))
		for i, item := range node.Content {
			value, err := scalarValue(resolveAlias(item), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	default:
		return nil, mappingError(field, "must be a pattern or a list of patterns")
	}
}

func mappingError(field, message string) error {
	return errors.WrapConfigError(
		fmt.Sprintf("transport_mappings: %s %s", field, message),
		ErrInvalidMapping,
	)
}

// configError wraps a validation failure of router name
func configError(name string, err error) error {
	return errors.WrapConfigError(fmt.Sprintf("router %q is misconfigured", name), err).
		WithContext("router", name)
}
