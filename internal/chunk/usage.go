package chunk

import (
	"regexp"
	"strings"
)

// UsageContext tags how a referenced name was encountered, mirroring the
// distinctions the two-pass linking resolver needs: a structural call/
// instantiate/decorator site resolves differently than a bare reference.
type UsageContext string

const (
	UsageContextCall        UsageContext = "call"
	UsageContextInstantiate UsageContext = "instantiate"
	UsageContextDecorator   UsageContext = "decorator"
	UsageContextReference   UsageContext = "reference"
)

// Usage is a reference from source text to a name, discovered while
// parsing and left for the linking pass to resolve against imports, the
// same file, or a project-wide name-match fallback.
type Usage struct {
	Name      string       // Referenced identifier, e.g. the "Func" in pkg.Func()
	Qualifier string       // Leading dotted/scoped component, e.g. "pkg"; empty if unqualified
	Context   UsageContext
	Line      int // 1-indexed, absolute within the parsed file
}

// callNodeTypes names the call-expression node type tree-sitter uses per
// language; callees are reconstructed from the node's pre-arguments
// children rather than per-grammar field names, so one extractor body
// covers every language here.
var callNodeTypes = map[string]string{
	"go":         "call_expression",
	"python":     "call",
	"typescript": "call_expression",
	"tsx":        "call_expression",
	"javascript": "call_expression",
	"jsx":        "call_expression",
	"rust":       "call_expression",
	"java":       "method_invocation",
	"cpp":        "call_expression",
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// extractUsages collects call/instantiate/decorator/JSX usages from a
// parsed tree. Dart has no tree-sitter grammar in the registry and is
// handled separately by extractDartUsages against raw source text.
func extractUsages(tree *Tree, language string) []Usage {
	var usages []Usage

	if callType, ok := callNodeTypes[language]; ok {
		for _, n := range tree.Root.FindAllByType(callType) {
			if u, ok := usageFromCall(n, tree.Source); ok {
				// Go has no constructor calls: a capitalized callee there is an
				// exported function or a conversion, so it stays a call.
				if language == "go" {
					u.Context = UsageContextCall
				}
				usages = append(usages, u)
			}
		}
	}

	switch language {
	case "python", "typescript", "tsx", "javascript", "jsx":
		usages = append(usages, extractDecorators(tree)...)
	}

	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		usages = append(usages, extractJSXUsages(tree)...)
	}

	return usages
}

// usageFromCall reconstructs the callee expression text from every child
// preceding the argument list, then splits it into qualifier/name. This
// works across grammars because a call node's children are always the
// callee expression followed by its arguments, regardless of whether the
// callee itself is a bare identifier or a dotted/scoped path.
func usageFromCall(n *Node, source []byte) (Usage, bool) {
	argIdx := -1
	for i, ch := range n.Children {
		if strings.Contains(ch.Type, "argument") {
			argIdx = i
			break
		}
	}
	if argIdx <= 0 {
		return Usage{}, false
	}

	var b strings.Builder
	for _, ch := range n.Children[:argIdx] {
		b.WriteString(ch.GetContent(source))
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return Usage{}, false
	}

	qualifier, name := splitQualifiedName(text)
	if name == "" || !identifierPattern.MatchString(name) {
		return Usage{}, false
	}

	ctx := UsageContextCall
	if isCapitalized(name) {
		ctx = UsageContextInstantiate
	}

	calleeLine := n.Children[argIdx-1].StartPoint.Row
	return Usage{Name: name, Qualifier: qualifier, Context: ctx, Line: int(calleeLine) + 1}, true
}

// extractDecorators collects Python/JS/TS "@decorator" and "@decorator(...)"
// usages. Both grammars name the node type "decorator".
func extractDecorators(tree *Tree) []Usage {
	var usages []Usage
	for _, n := range tree.Root.FindAllByType("decorator") {
		text := strings.TrimSpace(n.GetContent(tree.Source))
		text = strings.TrimPrefix(text, "@")
		if idx := strings.IndexByte(text, '('); idx != -1 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)

		qualifier, name := splitQualifiedName(text)
		if name == "" || !identifierPattern.MatchString(name) {
			continue
		}
		usages = append(usages, Usage{
			Name: name, Qualifier: qualifier, Context: UsageContextDecorator,
			Line: int(n.StartPoint.Row) + 1,
		})
	}
	return usages
}

// extractJSXUsages records capitalized JSX tag names (component references)
// as instantiate usages; lowercase tags are host elements (div, span) and
// carry no project-level reference to resolve.
func extractJSXUsages(tree *Tree) []Usage {
	var usages []Usage
	for _, nodeType := range []string{"jsx_opening_element", "jsx_self_closing_element"} {
		for _, n := range tree.Root.FindAllByType(nodeType) {
			for _, ch := range n.Children {
				if !strings.Contains(ch.Type, "identifier") {
					continue
				}
				name := ch.GetContent(tree.Source)
				if name != "" && isCapitalized(name) {
					usages = append(usages, Usage{
						Name: name, Context: UsageContextInstantiate,
						Line: int(ch.StartPoint.Row) + 1,
					})
				}
				break
			}
		}
	}
	return usages
}

// splitQualifiedName splits "pkg.Name" or "pkg::Name" into its qualifier and
// final component; an unqualified name returns an empty qualifier.
func splitQualifiedName(text string) (qualifier, name string) {
	dotIdx := strings.LastIndexByte(text, '.')
	scopeIdx := strings.LastIndex(text, "::")

	switch {
	case scopeIdx != -1 && scopeIdx > dotIdx:
		return text[:scopeIdx], text[scopeIdx+2:]
	case dotIdx != -1:
		return text[:dotIdx], text[dotIdx+1:]
	default:
		return "", text
	}
}

func isCapitalized(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// usagesInRange returns the usages whose Line falls within [startLine,
// endLine] of a chunk's span, partitioning one file-wide usage list across
// the chunks produced from it.
func usagesInRange(all []Usage, startLine, endLine int) []Usage {
	var out []Usage
	for _, u := range all {
		if u.Line >= startLine && u.Line <= endLine {
			out = append(out, u)
		}
	}
	return out
}

// dartInstantiatePattern matches a capitalized identifier immediately
// followed (after optional whitespace) by '(' — Dart widget/class instantiation, with or
// without a leading `new`.
var dartInstantiatePattern = regexp.MustCompile(`\b([A-Z]\w*)\s*\(`)

// extractDartUsages finds widget/class instantiation usages directly from
// source text, since Dart files are chunked by RegexChunker without a
// tree-sitter pass.
func extractDartUsages(content string) []Usage {
	var usages []Usage
	lineStarts := lineStartOffsets(content)
	for _, m := range dartInstantiatePattern.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		usages = append(usages, Usage{
			Name: name, Context: UsageContextInstantiate,
			Line: lineForOffset(lineStarts, m[2]),
		})
	}
	return usages
}

func lineStartOffsets(content string) []int {
	starts := []int{0}
	for i, r := range content {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineForOffset(lineStarts []int, offset int) int {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}
