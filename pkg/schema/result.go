package schema

// Kind tags the shape of a stage result.
type Kind string

const (
	KindMessage  Kind = "message"  // {"message": string}
	KindRows     Kind = "rows"     // {"data": [object]}
	KindQueries  Kind = "queries"  // {"queries": [{"table": string, "sql": string}]}
	KindInsights Kind = "insights" // {"insights": [{"title": string, "summary": string}]}
)

// Result is the typed output of a stage. The concrete type is determined by Kind.
type Result interface {
	Kind() Kind
}

// Message is an acknowledgement returned by request-style stages.
type Message struct {
	Message string `json:"message"`
}

func (*Message) Kind() Kind { return KindMessage }

// Rows is a tabular result, one object per row.
type Rows struct {
	Data []map[string]any `json:"data"`
}

func (*Rows) Kind() Kind { return KindRows }

// Query is a generated statement against one table.
type Query struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// Queries is the result of a query-generation stage.
type Queries struct {
	Queries []Query `json:"queries"`
}

func (*Queries) Kind() Kind { return KindQueries }

// Insight is one finding produced by the insights stage.
type Insight struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Insights is the result of the final, user-facing stage.
type Insights struct {
	Insights []Insight `json:"insights"`
}

func (*Insights) Kind() Kind { return KindInsights }
