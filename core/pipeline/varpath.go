package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseVariablePath splits a variable reference into path segments.
//
//	@input.items[0].title   → [@input items 0 title]
//	@input?.items           → [@input items]
//	@input["first name"]    → [@input first name]
//	@input.fo.              → [@input fo ""]
//
// A trailing dot yields a final empty segment: the preceding segment is
// complete and the user is about to type the next one. Optional chaining is
// treated exactly like a plain dot.
func ParseVariablePath(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "?.", ".")

	var parts []string
	var cur strings.Builder
	needSegment := true

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '.':
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			} else if needSegment {
				parts = append(parts, "")
			}
			needSegment = true

		case '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				cur.WriteString(s[i:])
				i = len(s)
				continue
			}
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			parts = append(parts, unquote(s[i+1:i+1+end]))
			i += end + 1
			needSegment = false

		default:
			cur.WriteByte(c)
			needSegment = false
		}
	}

	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	} else if needSegment {
		parts = append(parts, "")
	}
	return parts
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$@][\w$]*$`)

// FormatVariablePath renders segments back into a reference string, using
// bracket access for numeric and non-identifier segments.
func FormatVariablePath(parts []string) string {
	var b strings.Builder
	for i, part := range parts {
		switch {
		case IsIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0 && !identifierPattern.MatchString(part):
			b.WriteString(`["` + part + `"]`)
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(part)
		}
	}
	return b.String()
}

// IsIndex reports whether a path segment is a non-negative array index.
func IsIndex(part string) bool {
	if part == "" {
		return false
	}
	n, err := strconv.Atoi(part)
	return err == nil && n >= 0 && strconv.Itoa(n) == part
}

var (
	templateTagPattern = regexp.MustCompile(`(?s)\{\{(.*?)\}\}|\{%(.*?)%\}`)
	variablePattern    = regexp.MustCompile(`@[A-Za-z_$][\w$]*(?:\??\.[A-Za-z_$][\w$]*|\[\d+\]|\["[^"]*"\]|\['[^']*'\])*`)
)

// TemplateVariables returns the variable references used inside the tags of
// a template, in order of appearance and without duplicates.
func TemplateVariables(source string) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, tag := range templateTagPattern.FindAllStringSubmatch(source, -1) {
		body := tag[1] + tag[2]
		for _, ref := range variablePattern.FindAllString(body, -1) {
			if !seen[ref] {
				seen[ref] = true
				vars = append(vars, ref)
			}
		}
	}
	return vars
}
