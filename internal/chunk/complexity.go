package chunk

import "regexp"

// branchKeywordPatterns counts control-flow branch points per language,
// the same per-language dispatch shape extractDependencies uses. Complexity
// is 1 (the chunk's single straight-line path) plus one per match.
var branchKeywordPatterns = map[string]*regexp.Regexp{
	"go":              regexp.MustCompile(`\b(if|for|case)\b|&&|\|\|`),
	"typescript":      regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\s\?\s`),
	"tsx":             regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\s\?\s`),
	"javascript":      regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\s\?\s`),
	"jsx":             regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\s\?\s`),
	"python":          regexp.MustCompile(`\b(if|elif|for|while|except|and|or)\b`),
	"rust":            regexp.MustCompile(`\b(if|for|while|match)\b|&&|\|\|`),
	"java":            regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\s\?\s`),
	"kotlin":          regexp.MustCompile(`\b(if|for|while|when|catch)\b|&&|\|\|`),
	"cpp":             regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\|`),
	"c":               regexp.MustCompile(`\b(if|for|while|case)\b|&&|\|\|`),
	"csharp":          regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\|`),
	"dart":            regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\|`),
	"ruby":            regexp.MustCompile(`\b(if|elsif|unless|for|while|rescue|case|and|or)\b`),
	"firestore-rules": regexp.MustCompile(`\b(if|allow)\b|&&|\|\|`),
}

var defaultBranchPattern = regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\|`)

// computeComplexity approximates cyclomatic complexity by counting
// control-flow keyword and branching-operator occurrences in raw content.
// It is a lexical approximation, not an AST-accurate count: a keyword
// appearing inside a string literal or comment is counted the same as one
// in executable code.
func computeComplexity(content, language string) int {
	pattern, ok := branchKeywordPatterns[language]
	if !ok {
		pattern = defaultBranchPattern
	}
	return 1 + len(pattern.FindAllStringIndex(content, -1))
}
