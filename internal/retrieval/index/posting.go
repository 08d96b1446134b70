package index

// Field identifies a document section with its own scoring weight.
type Field string

const (
	FieldTitle    Field = "title"
	FieldHeadings Field = "headings"
	FieldBody     Field = "body"
)

// Fields lists all indexed fields in scoring order.
var Fields = []Field{FieldTitle, FieldHeadings, FieldBody}

// Weights maps a field to its score multiplier. Keeping this as data rather
// than branches lets the scoring formula stay declarative and testable.
type Weights map[Field]float64

// DefaultWeights boosts title and heading matches over body matches.
func DefaultWeights() Weights {
	return Weights{
		FieldTitle:    2.0,
		FieldHeadings: 1.5,
		FieldBody:     1.0,
	}
}

// Posting records how often a term occurs for one document in one field.
type Posting struct {
	DocID     string
	Frequency int
	Positions []int
}

// PostingList is a set of postings for a single term and field.
type PostingList []Posting

// FieldPostings groups a term's postings by field.
type FieldPostings map[Field]PostingList
