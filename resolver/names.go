package resolver

import "strings"

var keywords = map[string]struct{}{
	"abstract": {}, "assert": {}, "boolean": {}, "break": {}, "byte": {},
	"case": {}, "catch": {}, "char": {}, "class": {}, "const": {},
	"continue": {}, "default": {}, "do": {}, "double": {}, "else": {},
	"enum": {}, "extends": {}, "final": {}, "finally": {}, "float": {},
	"for": {}, "goto": {}, "if": {}, "implements": {}, "import": {},
	"instanceof": {}, "int": {}, "interface": {}, "long": {}, "native": {},
	"new": {}, "package": {}, "private": {}, "protected": {}, "public": {},
	"return": {}, "short": {}, "static": {}, "strictfp": {}, "super": {},
	"switch": {}, "synchronized": {}, "this": {}, "throw": {}, "throws": {},
	"transient": {}, "try": {}, "void": {}, "volatile": {}, "while": {},
	"true": {}, "false": {}, "null": {},
}

// IsKeyword reports whether name is reserved in the managed language.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// ManagedName returns the managed-side name for a native method: keywords
// gain the escape prefix, everything else is unchanged.
func ManagedName(name string) string {
	if IsKeyword(name) {
		return EscapePrefix + name
	}
	return name
}

// AccessorNames returns the managed getter and setter names for an
// attribute. The setter name is empty for readonly attributes.
func AccessorNames(attr string, readonly bool) (string, string) {
	upper := upperFirst(attr)
	get := "get" + upper
	if readonly {
		return get, ""
	}
	return get, "set" + upper
}

// Unescape strips the escape prefix from a managed name.
func Unescape(name string) string {
	return strings.TrimPrefix(name, EscapePrefix)
}
