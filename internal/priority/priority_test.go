package priority

import "testing"

func TestRank_Tiers(t *testing.T) {
	cases := []struct {
		path string
		want int
	}{
		{"internal/index/indexer.go", TierSource},
		{"src/app.ts", TierSource},
		{"cmd/codegraph/main.go", TierSource},
		{"README.md", TierDocs},
		{"docs/guide.md", TierDocs},
		{"internal/index/indexer_test.go", TierTest},
		{"__tests__/app.spec.ts", TierTest},
		{"vendor/github.com/x/y/y.go", TierGenerated},
		{"api.pb.go", TierGenerated},
		{"scripts/deploy.sh", TierDefault},
	}
	for _, c := range cases {
		if got := Rank(c.path); got != c.want {
			t.Errorf("Rank(%q) = %d, want %d", c.path, got, c.want)
		}
	}
}

func TestLess_LowerTierWinsRegardlessOfName(t *testing.T) {
	if !Less("src/a.go", "zzz_test.go") {
		t.Fatalf("expected source file to sort before a test file")
	}
	if Less("zzz_test.go", "src/a.go") {
		t.Fatalf("expected test file not to sort before a source file")
	}
}

func TestLess_SameTierFallsBackToLexicalOrder(t *testing.T) {
	if !Less("scripts/a.sh", "scripts/b.sh") {
		t.Fatalf("expected lexical tie-break within the same tier")
	}
	if Less("scripts/b.sh", "scripts/a.sh") {
		t.Fatalf("expected lexical tie-break within the same tier")
	}
}
