package query

// FieldType represents the data type of a queryable field.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeInt
	FieldTypeFloat
	FieldTypeTime
)

// FieldDef defines a queryable field with its allowed operators.
// Column is the SQL expression addressing the field in the events
// table, which for payload fields is a JSON extraction.
type FieldDef struct {
	Name      string
	Column    string
	Type      FieldType
	Operators []string
}

// SearchFields are the fields usable in error-log search expressions.
var SearchFields = map[string]FieldDef{
	"runtime": {
		Name:      "runtime",
		Column:    exprRuntime,
		Type:      FieldTypeString,
		Operators: []string{"==", "!=", "in", "contains", "startsWith", "endsWith"},
	},
	"processor": {
		Name:      "processor",
		Column:    exprLogger,
		Type:      FieldTypeString,
		Operators: []string{"==", "!=", "in", "contains", "startsWith", "endsWith", "matches"},
	},
	"level": {
		Name:      "level",
		Column:    exprLogLevel,
		Type:      FieldTypeString,
		Operators: []string{"==", "!=", "in"},
	},
	"message": {
		Name:      "message",
		Column:    exprMessage,
		Type:      FieldTypeString,
		Operators: []string{"==", "!=", "contains", "startsWith", "endsWith", "matches"},
	},
	"timestamp": {
		Name:      "timestamp",
		Column:    "timestamp",
		Type:      FieldTypeTime,
		Operators: []string{">=", "<=", ">", "<"},
	},
}

// IsOperatorAllowed checks if an operator is valid for a field.
func (f FieldDef) IsOperatorAllowed(op string) bool {
	for _, allowed := range f.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

// AllowedFunctions lists functions allowed in expressions.
var AllowedFunctions = map[string]bool{
	"now":      true,
	"duration": true,
}
