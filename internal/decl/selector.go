package decl

import "strings"

// goKeywords are target-language names a mangled identifier must not
// collide with. Mirrors the reserved-word repair the generated package
// needs; a colliding name gets a trailing underscore.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true,
	"continue": true, "default": true, "defer": true, "else": true,
	"fallthrough": true, "for": true, "func": true, "go": true,
	"goto": true, "if": true, "import": true, "interface": true,
	"map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true,
	"var": true,
}

// Mangle turns a multi-part selector into a single callable identifier.
// Each part keeps its position: every `:` becomes `_`, so
// `initWithValue:andFlag:` yields `initWithValue_andFlag_`. Distinct
// selectors collide only when one already contains `_` where the other
// has `:` (`foo_bar:` vs `foo_bar_`); the synthesizer drops such
// shadowed duplicates instead of emitting the same wrapper twice.
func Mangle(selector string) string {
	name := strings.ReplaceAll(selector, ":", "_")
	if goKeywords[name] {
		name += "_"
	}
	return name
}

// SafeName repairs a parameter or field name that collides with a Go
// keyword or is empty.
func SafeName(name string) string {
	if name == "" {
		return "_arg"
	}
	if goKeywords[name] {
		return name + "_"
	}
	return name
}

// SelectorParts splits a selector into its named parts, without the
// trailing colons. A nullary selector is a single part.
func SelectorParts(selector string) []string {
	if !strings.Contains(selector, ":") {
		return []string{selector}
	}
	parts := strings.Split(selector, ":")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// FirstSegment is the selector text up to the first colon, the portion
// the create-rule naming convention inspects.
func FirstSegment(selector string) string {
	if i := strings.IndexByte(selector, ':'); i >= 0 {
		return selector[:i]
	}
	return selector
}

// HasWordPrefix reports whether s begins with the camelCase word prefix:
// the prefix itself followed by nothing, a colon, a digit, or an upper
// case letter. `allocWithZone:` has word prefix `alloc`; `allocate`
// does not.
func HasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	if len(s) == len(prefix) {
		return true
	}
	c := s[len(prefix)]
	return c == ':' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
