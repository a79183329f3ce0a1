package query

import (
	"reflect"
	"testing"
)

func TestSQLBuilder_Build(t *testing.T) {
	dsl := NewSearchDSL(SearchFields)
	builder := NewSQLBuilder(SearchFields)

	tests := []struct {
		name          string
		expr          string
		wantSQL       string
		wantArgs      []any
		skipArgsCheck bool // For map-based args where order is non-deterministic
	}{
		{
			name:     "simple equality",
			expr:     `level == "error"`,
			wantSQL:  "(lower(JSONExtractString(value, 'level')) = ?)",
			wantArgs: []any{"error"},
		},
		{
			name:          "in operator",
			expr:          `level in ["error", "fatal"]`,
			wantSQL:       "lower(JSONExtractString(value, 'level')) IN (?, ?)",
			skipArgsCheck: true, // Map iteration order is non-deterministic
		},
		{
			name:     "in folds both sides",
			expr:     `level in ["ERROR"]`,
			wantSQL:  "lower(JSONExtractString(value, 'level')) IN (?)",
			wantArgs: []any{"error"},
		},
		{
			name:     "contains on message",
			expr:     `message contains "timeout"`,
			wantSQL:  "position(lower(JSONExtractString(value, 'formattedMessage')), ?) > 0",
			wantArgs: []any{"timeout"},
		},
		{
			name:     "startsWith on processor",
			expr:     `processor startsWith "org.apache.nifi"`,
			wantSQL:  "startsWith(lower(JSONExtractString(value, 'loggerName')), ?)",
			wantArgs: []any{"org.apache.nifi"},
		},
		{
			name:     "runtime equality",
			expr:     `runtime == "runtime-orders"`,
			wantSQL:  "(lower(resource_attributes['k8s.namespace.name']) = ?)",
			wantArgs: []any{"runtime-orders"},
		},
		{
			name:     "and logic",
			expr:     `processor contains "kafka" and message contains "rebalance"`,
			wantSQL:  "(position(lower(JSONExtractString(value, 'loggerName')), ?) > 0 AND position(lower(JSONExtractString(value, 'formattedMessage')), ?) > 0)",
			wantArgs: []any{"kafka", "rebalance"},
		},
		{
			name:     "not operator",
			expr:     `not (processor contains "funnel")`,
			wantSQL:  "NOT (position(lower(JSONExtractString(value, 'loggerName')), ?) > 0)",
			wantArgs: []any{"funnel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := dsl.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			result, err := builder.Build(parsed)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			if result.SQL != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", result.SQL, tt.wantSQL)
			}

			if !tt.skipArgsCheck && !reflect.DeepEqual(result.Args, tt.wantArgs) {
				t.Errorf("Args = %v, want %v", result.Args, tt.wantArgs)
			}
		})
	}
}

func TestSQLBuilder_RejectsDangerousRegex(t *testing.T) {
	dsl := NewSearchDSL(SearchFields)
	builder := NewSQLBuilder(SearchFields)

	parsed, err := dsl.Parse(`message matches "(a+)+"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if _, err := builder.Build(parsed); err == nil {
		t.Error("nested quantifier regex must be rejected")
	}
}

func TestSearchDSL_Validation(t *testing.T) {
	dsl := NewSearchDSL(SearchFields)

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"valid expression", `level == "error" and message contains "x"`, false},
		{"empty expression", ``, true},
		{"unknown field", `hostname == "web-1"`, true},
		{"disallowed operator", `level contains "err"`, true},
		{"non-boolean result", `message`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dsl.Parse(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
