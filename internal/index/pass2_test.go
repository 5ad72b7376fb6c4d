package index

import (
	"testing"

	"github.com/codegraph-dev/codegraph/internal/chunk"
	"github.com/codegraph-dev/codegraph/internal/graph"
)

func TestBindingMatches_LastPathComponentCaseInsensitive(t *testing.T) {
	cases := []struct {
		spec string
		key  string
		want bool
	}{
		{"helper", "helper", true},
		{"helper", "Helper", true},
		{"./utils/helper", "helper", true},
		{"./utils/helper.js", "helper", true},
		{"pkg.submodule", "submodule", false}, // ".submodule" is trimmed as an extension, leaving "pkg"
		{"fmt", "println", false},
	}
	for _, tc := range cases {
		if got := bindingMatches(tc.spec, tc.key); got != tc.want {
			t.Errorf("bindingMatches(%q, %q) = %v, want %v", tc.spec, tc.key, got, tc.want)
		}
	}
}

func TestEdgeKind_MapsEveryUsageContext(t *testing.T) {
	cases := []struct {
		in   chunk.UsageContext
		want graph.Kind
	}{
		{chunk.UsageContextCall, graph.KindCall},
		{chunk.UsageContextInstantiate, graph.KindInstantiate},
		{chunk.UsageContextDecorator, graph.KindDecorator},
		{chunk.UsageContextReference, graph.KindReference},
	}
	for _, tc := range cases {
		if got := edgeKind(tc.in); got != tc.want {
			t.Errorf("edgeKind(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAssociatedImport_NoMatchReturnsFalse(t *testing.T) {
	deps := []string{"os", "sys"}
	u := chunk.Usage{Name: "unrelated"}
	if _, ok := associatedImport("main.py", "/root", u, deps, noopResolver{}); ok {
		t.Fatalf("expected no match against an unrelated import set")
	}
}

// noopResolver never resolves anything; used to exercise the no-match path
// in associatedImport without depending on a real language resolver.
type noopResolver struct{}

func (noopResolver) Resolve(importString, sourceFile, projectRoot string) (string, bool) {
	return "", false
}
