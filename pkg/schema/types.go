package schema

import "fmt"

// Type checks one field of a decoded JSON object.
type Type interface {
	Name() string
	Validate(value any) error
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type sliceType struct {
	elem Type
}

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

// Validate accepts a JSON array (null is rejected) whose elements all match.
func (t sliceType) Validate(value any) error {
	items, ok := value.([]any)
	if !ok {
		return fmt.Errorf("expected array, got %T", value)
	}
	for i, item := range items {
		if err := t.elem.Validate(item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type objectType struct {
	fields Schema
}

func (objectType) Name() string { return "object" }

func (t objectType) Validate(value any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	return Validate(t.fields, obj)
}

// String matches a JSON string.
func String() Type { return stringType{} }

// Slice matches a JSON array of elem.
func Slice(elem Type) Type { return sliceType{elem: elem} }

// Object matches a JSON object. With nil fields any object passes;
// otherwise every field is required.
func Object(fields Schema) Type { return objectType{fields: fields} }
