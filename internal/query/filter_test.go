package query

import (
	"strings"
	"testing"
	"time"
)

func TestFilterRuntimeScope(t *testing.T) {
	tests := []struct {
		name       string
		filter     Filter
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "all runtimes adds no restriction",
			filter:     Filter{AllRuntimes: true},
			wantClause: "",
		},
		{
			name:       "explicit set restricts to exactly that set",
			filter:     Filter{Runtimes: []string{"runtime-a", "runtime-b"}},
			wantClause: "resource_attributes['k8s.namespace.name'] IN (?, ?)",
			wantArgs:   []any{"runtime-a", "runtime-b"},
		},
		{
			name:       "single runtime",
			filter:     Filter{Runtimes: []string{"runtime-a"}},
			wantClause: "resource_attributes['k8s.namespace.name'] IN (?)",
			wantArgs:   []any{"runtime-a"},
		},
		{
			name:       "empty explicit set is unsatisfiable",
			filter:     Filter{},
			wantClause: "1 = 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := tt.filter.runtimeScope()
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestFilterBucket(t *testing.T) {
	tests := []struct {
		hours int
		want  string
	}{
		{1, "hour"},
		{24, "hour"},
		{48, "hour"},
		{49, "day"},
		{168, "day"},
	}

	for _, tt := range tests {
		f := Filter{TimeWindowHours: tt.hours}
		if got := f.Bucket(); got != tt.want {
			t.Errorf("Bucket() for %dh = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestFilterWindowStart(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := Filter{TimeWindowHours: 6}
	want := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	if got := f.WindowStart(now); !got.Equal(want) {
		t.Errorf("WindowStart = %v, want %v", got, want)
	}
}

func TestQueryKey(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := TopErrorRuntimes(Filter{AllRuntimes: true, TimeWindowHours: 24}, now)
	b := TopErrorRuntimes(Filter{AllRuntimes: true, TimeWindowHours: 24}, now)
	if a.Key() != b.Key() {
		t.Error("identical queries must share a cache key")
	}

	c := TopErrorRuntimes(Filter{AllRuntimes: true, TimeWindowHours: 24}, now.Add(time.Minute))
	if a.Key() == c.Key() {
		t.Error("different evaluation instants must not share a cache key")
	}

	d := TopErrorRuntimes(Filter{Runtimes: []string{"runtime-a"}, TimeWindowHours: 24}, now)
	if a.Key() == d.Key() {
		t.Error("different runtime scopes must not share a cache key")
	}
}

func TestBuildersAreReferentiallyTransparent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := Filter{Runtimes: []string{"runtime-a", "runtime-b"}, TimeWindowHours: 24}

	q1 := HighErrorRate(f, now, 5)
	q2 := HighErrorRate(f, now, 5)
	if q1.SQL != q2.SQL || q1.Key() != q2.Key() {
		t.Error("builder output must be identical for identical inputs")
	}
	if strings.Contains(q1.SQL, "runtime-a") {
		t.Error("runtime names must be bind args, not interpolated")
	}
}
