package xpt

import (
	"regexp"
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/nsid"
)

var witFuncPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// ImportWIT builds an interface from WIT function signatures and registers
// it under name. Function and parameter names are converted from kebab-case
// to camelCase. A list<T> parameter becomes an array preceded by a
// synthesized "unsigned long" count parameter; a single result becomes the
// retval parameter.
func (l *Typelib) ImportWIT(witText, name string, iid nsid.ID) (*Interface, error) {
	matches := witFuncPattern.FindAllStringSubmatch(witText, -1)
	if len(matches) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}

	parent, _ := l.InterfaceByIID(ISupportsIID)
	iface := &Interface{Name: name, IID: iid, Parent: parent, Scriptable: true}

	for _, match := range matches {
		m := &Method{Name: camelCase(match[1])}

		if paramsStr := strings.TrimSpace(match[2]); paramsStr != "" {
			for _, p := range splitParams(paramsStr) {
				pname, typStr, found := strings.Cut(p, ":")
				if !found {
					return nil, errors.ParseFailed("WIT param "+p, nil)
				}
				if err := appendWitParam(m, camelCase(strings.TrimSpace(pname)), typStr, DirIn); err != nil {
					return nil, err
				}
			}
		}

		resultStr := ""
		if len(match) > 3 {
			resultStr = strings.TrimSpace(match[3])
		}
		if resultStr != "" && resultStr != "()" {
			if strings.HasPrefix(resultStr, "(") {
				return nil, errors.ParseFailed("WIT result "+resultStr, errors.InvalidInput(errors.PhaseParse, "multiple results are not supported"))
			}
			if err := appendWitParam(m, "_retval", resultStr, DirOut|DirRetval); err != nil {
				return nil, err
			}
		}

		iface.Methods = append(iface.Methods, m)
	}

	if err := l.Add(iface); err != nil {
		return nil, err
	}
	return iface, nil
}

func appendWitParam(m *Method, name, typStr string, dir Direction) error {
	typStr = strings.TrimSpace(typStr)

	if inner, ok := strings.CutPrefix(typStr, "list<"); ok && strings.HasSuffix(inner, ">") {
		elem, err := witTag(strings.TrimSuffix(inner, ">"))
		if err != nil {
			return err
		}
		countDir := DirIn
		if dir.IsOut() {
			countDir = DirOut
		}
		m.Params = append(m.Params, Param{Name: name + "Count", Type: Scalar(U32), Dir: countDir})
		arr := Scalar(Array)
		arr.Elem = &Type{Tag: elem, SizeIs: NoArg, IIDIs: NoArg}
		arr.SizeIs = len(m.Params) - 1
		m.Params = append(m.Params, Param{Name: name, Type: arr, Dir: dir})
		return nil
	}

	tag, err := witTag(typStr)
	if err != nil {
		return err
	}
	m.Params = append(m.Params, Param{Name: name, Type: Scalar(tag), Dir: dir})
	return nil
}

func witTag(s string) (Tag, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.ParseFailed("WIT type "+s, err)
	}
	switch t.(type) {
	case wit.Bool:
		return Bool, nil
	case wit.S8:
		return I8, nil
	case wit.U8:
		return U8, nil
	case wit.S16:
		return I16, nil
	case wit.U16:
		return U16, nil
	case wit.S32:
		return I32, nil
	case wit.U32:
		return U32, nil
	case wit.S64:
		return I64, nil
	case wit.U64:
		return U64, nil
	case wit.F32:
		return Float, nil
	case wit.F64:
		return Double, nil
	case wit.Char:
		return WChar, nil
	case wit.String:
		return CharStr, nil
	}
	return 0, errors.UnexpectedType(errors.PhaseParse, nil, s)
}

// splitParams splits a parameter list, handling nested brackets.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}

func camelCase(s string) string {
	parts := strings.Split(s, "-")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
