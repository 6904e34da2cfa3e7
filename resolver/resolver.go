// Package resolver maps managed call names onto native method descriptors.
//
// Managed interfaces expose attributes as getFoo/setFoo methods, escape
// names that collide with managed keywords with a leading underscore, and
// may capitalize names. Resolve undoes all three, in a fixed order where
// the first success wins:
//
//  1. strip one leading '_'
//  2. exact name
//  3. getX/setX as attribute x (first letter lowered)
//  4. exact name with the first letter capitalized
//  5. getX/setX as attribute X
package resolver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/xpt"
)

// Strategy records which rule produced a match.
type Strategy uint8

const (
	StrategyExact Strategy = iota
	StrategyGetter
	StrategySetter
	StrategyCapitalized
	StrategyCapitalizedGetter
	StrategyCapitalizedSetter
)

var strategyNames = [...]string{
	StrategyExact:             "exact",
	StrategyGetter:            "getter",
	StrategySetter:            "setter",
	StrategyCapitalized:       "capitalized",
	StrategyCapitalizedGetter: "capitalized-getter",
	StrategyCapitalizedSetter: "capitalized-setter",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// Match is a resolved method.
type Match struct {
	Method   *xpt.Method
	Index    int
	Strategy Strategy
}

// EscapePrefix marks a name escaped to avoid a managed keyword.
const EscapePrefix = "_"

// Resolve finds the method a managed call name refers to.
func Resolve(info *xpt.Interface, name string) (Match, error) {
	stripped := strings.TrimPrefix(name, EscapePrefix)

	if m, ok := exact(info, stripped, StrategyExact); ok {
		return m, nil
	}
	if m, ok := accessor(info, stripped, false); ok {
		return m, nil
	}

	capitalized := upperFirst(stripped)
	if capitalized != stripped {
		if m, ok := exact(info, capitalized, StrategyCapitalized); ok {
			return m, nil
		}
	}
	if m, ok := accessor(info, stripped, true); ok {
		return m, nil
	}

	return Match{}, errors.New(errors.PhaseResolve, errors.KindNotFound).
		Path(info.Name, name).
		Detail("no method or attribute %q", name).
		Build()
}

func exact(info *xpt.Interface, name string, strategy Strategy) (Match, bool) {
	idx, m, ok := info.MethodByName(name)
	if !ok || m.Hidden {
		return Match{}, false
	}
	return Match{Method: m, Index: idx, Strategy: strategy}, true
}

// accessor resolves getX/setX to attribute x. With keepCase the attribute
// name keeps the case of its first letter.
func accessor(info *xpt.Interface, name string, keepCase bool) (Match, bool) {
	if len(name) <= 3 {
		return Match{}, false
	}
	prefix, rest := name[:3], name[3:]
	getter := prefix == "get"
	if !getter && prefix != "set" {
		return Match{}, false
	}

	attr := rest
	if !keepCase {
		attr = lowerFirst(rest)
	}

	idx, m, ok := info.MethodByName(attr)
	if !ok || !m.Getter {
		return Match{}, false
	}

	strategy := StrategyGetter
	if keepCase {
		strategy = StrategyCapitalizedGetter
	}
	if getter {
		return Match{Method: m, Index: idx, Strategy: strategy}, true
	}

	// The setter immediately follows its getter.
	setter, ok := info.Method(idx + 1)
	if !ok || !setter.Setter || setter.Name != attr {
		return Match{}, false
	}
	return Match{Method: setter, Index: idx + 1, Strategy: strategy + 1}, true
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
