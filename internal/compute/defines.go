package compute

import (
	"fmt"
	"strconv"
	"strings"
)

// Define is one build-time constant baked into a program.
type Define struct {
	Name  string
	Value int
}

// Defines is an ordered list of build-time constants.
type Defines []Define

// String formats the list as build options: "-DName=Value" tokens
// separated by single spaces.
func (d Defines) String() string {
	var sb strings.Builder
	for i, def := range d {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("-D")
		sb.WriteString(def.Name)
		sb.WriteByte('=')
		sb.WriteString(strconv.Itoa(def.Value))
	}
	return sb.String()
}

// Lookup returns the value of name and whether it was defined.
// Later definitions override earlier ones.
func (d Defines) Lookup(name string) (int, bool) {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].Name == name {
			return d[i].Value, true
		}
	}
	return 0, false
}

// Require returns the value of each name in order, or an ErrBuild error
// naming the first missing one.
func (d Defines) Require(names ...string) ([]int, error) {
	values := make([]int, len(names))
	for i, name := range names {
		v, ok := d.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: missing definition %q", ErrBuild, name)
		}
		values[i] = v
	}
	return values, nil
}

// ParseDefines parses whitespace separated "-DName=Value" tokens.
// Values must be decimal integers.
func ParseDefines(options string) (Defines, error) {
	fields := strings.Fields(options)
	defs := make(Defines, 0, len(fields))
	for _, tok := range fields {
		body, ok := strings.CutPrefix(tok, "-D")
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized option %q", ErrBuild, tok)
		}
		name, raw, ok := strings.Cut(body, "=")
		if !ok || !isIdentifier(name) {
			return nil, fmt.Errorf("%w: malformed definition %q", ErrBuild, tok)
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: definition %q: %w", ErrBuild, tok, err)
		}
		defs = append(defs, Define{Name: name, Value: value})
	}
	return defs, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
