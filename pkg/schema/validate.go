package schema

import "sort"

// Schema is a map of field names to their expected types.
// Example: {"message": String(), "data": Slice(Object(nil))}
type Schema map[string]Type

// Validate checks if data conforms to the schema.
// Every declared field is required. Extra fields are allowed.
// Returns an *AggregateError carrying every failure found.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	// Stable order keeps error messages reproducible.
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, fieldName := range names {
		value, exists := data[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "required",
			})
			continue
		}

		if err := schema[fieldName].Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
