// Package schema describes the shape of stage results and validates remote
// responses against it.
//
// A result schema is tagged: every stage declares one Kind (message, rows,
// queries, insights) and the field types its body must carry. Decoding a body
// validates the raw JSON object first and then maps it onto the typed Result
// for that kind:
//
//	rs := schema.MustFor(schema.KindRows)
//	res, err := rs.Decode([]byte(`{"data":[{"region":"NE"}]}`))
//	if err != nil {
//	    // err wraps a *ValidationError / *AggregateError describing the mismatch
//	}
//	rows := res.(*schema.Rows)
//
// Field types are small validators:
//
//	fields := schema.Schema{
//	    "message": schema.String(),
//	    "tags":    schema.Slice(schema.String()),
//	}
//
// The same schema also knows how to synthesize a deterministic placeholder for
// its kind (see Synthesize), which is what keeps a pipeline moving when a
// remote stage is unavailable.
package schema
