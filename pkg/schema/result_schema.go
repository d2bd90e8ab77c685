package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// ResultSchema is the tagged shape a stage result must satisfy.
type ResultSchema struct {
	Kind   Kind
	Fields Schema

	newResult  func() Result
	synthesize func(Seed) Result
}

var registry = map[Kind]ResultSchema{
	KindMessage: {
		Kind:       KindMessage,
		Fields:     Schema{"message": String()},
		newResult:  func() Result { return &Message{} },
		synthesize: synthesizeMessage,
	},
	KindRows: {
		Kind:       KindRows,
		Fields:     Schema{"data": Slice(Object(nil))},
		newResult:  func() Result { return &Rows{} },
		synthesize: synthesizeRows,
	},
	KindQueries: {
		Kind: KindQueries,
		Fields: Schema{"queries": Slice(Object(Schema{
			"table": String(),
			"sql":   String(),
		}))},
		newResult:  func() Result { return &Queries{} },
		synthesize: synthesizeQueries,
	},
	KindInsights: {
		Kind: KindInsights,
		Fields: Schema{"insights": Slice(Object(Schema{
			"title":   String(),
			"summary": String(),
		}))},
		newResult:  func() Result { return &Insights{} },
		synthesize: synthesizeInsights,
	},
}

// For returns the registered schema for kind.
func For(kind Kind) (ResultSchema, error) {
	rs, ok := registry[kind]
	if !ok {
		return ResultSchema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return rs, nil
}

// MustFor is like For but panics on an unknown kind. Intended for static tables.
func MustFor(kind Kind) ResultSchema {
	rs, err := For(kind)
	if err != nil {
		panic(err)
	}
	return rs
}

// Kinds lists every registered kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Decode validates a JSON body against the schema and returns the typed result.
// Every failure wraps ErrMismatch.
func (rs ResultSchema) Decode(body []byte) (Result, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s body is not a JSON object: %v", ErrMismatch, rs.Kind, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %s body is null", ErrMismatch, rs.Kind)
	}
	return rs.DecodeMap(obj)
}

// DecodeMap is Decode for an already parsed JSON object.
func (rs ResultSchema) DecodeMap(obj map[string]any) (Result, error) {
	if err := Validate(rs.Fields, obj); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMismatch, rs.Kind, err)
	}

	out := rs.newResult()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return nil, fmt.Errorf("schema: build decoder: %w", err)
	}
	if err := dec.Decode(obj); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMismatch, rs.Kind, err)
	}
	return out, nil
}

// Check verifies that an already typed result satisfies the schema.
func (rs ResultSchema) Check(r Result) error {
	if r == nil {
		return fmt.Errorf("%w: nil %s result", ErrMismatch, rs.Kind)
	}
	if r.Kind() != rs.Kind {
		return fmt.Errorf("%w: expected %s, got %s", ErrMismatch, rs.Kind, r.Kind())
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	_, err = rs.Decode(body)
	return err
}

// Synthesize returns the deterministic placeholder result for this kind.
func (rs ResultSchema) Synthesize(seed Seed) Result {
	return rs.synthesize(seed)
}
