// Package yapattern compiles the text patterns plugins register against the
// message stream.
//
// Patterns are rewritten so that word assertions (\b, \B, \w, \W) treat every
// Unicode letter and digit as a word character, independent of the regexp2
// options the caller picked, and matching is always case-insensitive.
package yapattern

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single match so that a catastrophic pattern can
// not stall the delivery goroutine.
const DefaultMatchTimeout = time.Second

const (
	wordClassBody = `\p{L}\p{N}_`
	wordClass     = `[` + wordClassBody + `]`
	notWordClass  = `[^` + wordClassBody + `]`

	wordBoundary    = `(?:(?<=` + wordClass + `)(?!` + wordClass + `)|(?<!` + wordClass + `)(?=` + wordClass + `))`
	notWordBoundary = `(?:(?<=` + wordClass + `)(?=` + wordClass + `)|(?<!` + wordClass + `)(?!` + wordClass + `))`
)

// Pattern is a compiled, normalized, case-insensitive expression. Immutable.
type Pattern struct {
	source string
	re     *regexp2.Regexp
}

// Normalize rewrites word assertions of expr to their Unicode-aware form.
// Capture groups are left untouched and Normalize(Normalize(x)) == Normalize(x).
//
// Example usage:
//
//	yapattern.Normalize(`\bпривет\b`)
func Normalize(expr string) string {
	var (
		out     strings.Builder
		inClass bool
	)

	out.Grow(len(expr))

	runes := []rune(expr)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '\\' && i+1 < len(runes):
			i++
			next := runes[i]

			out.WriteString(rewriteEscape(next, inClass))
		case r == '[' && !inClass:
			inClass = true

			out.WriteRune(r)

			if i+1 < len(runes) && runes[i+1] == '^' {
				i++
				out.WriteRune('^')
			}

			if i+1 < len(runes) && runes[i+1] == ']' {
				i++
				out.WriteRune(']')
			}
		case r == ']' && inClass:
			inClass = false

			out.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}

	return out.String()
}

func rewriteEscape(next rune, inClass bool) string {
	if inClass {
		if next == 'w' {
			return wordClassBody
		}

		return `\` + string(next)
	}

	switch next {
	case 'b':
		return wordBoundary
	case 'B':
		return notWordBoundary
	case 'w':
		return wordClass
	case 'W':
		return notWordClass
	default:
		return `\` + string(next)
	}
}

// Compile normalizes expr and compiles it with opts plus regexp2.IgnoreCase.
// A malformed expression returns the regexp2 error as is.
//
// Example usage:
//
//	pattern, err := yapattern.Compile(`^!echo (.+)`, regexp2.None)
func Compile(expr string, opts regexp2.RegexOptions) (*Pattern, error) {
	re, err := regexp2.Compile(Normalize(expr), opts|regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}

	re.MatchTimeout = DefaultMatchTimeout

	return &Pattern{source: expr, re: re}, nil
}

// MustCompile is Compile that panics on a malformed expression. Meant for
// package-level pattern variables.
func MustCompile(expr string, opts regexp2.RegexOptions) *Pattern {
	pattern, err := Compile(expr, opts)
	if err != nil {
		panic(err)
	}

	return pattern
}

// FindStringSubmatch returns the full match followed by every group, or nil
// when text does not match. Groups that did not participate are empty strings.
func (p *Pattern) FindStringSubmatch(text string) ([]string, error) {
	match, err := p.re.FindStringMatch(text)
	if err != nil || match == nil {
		return nil, err
	}

	groups := match.Groups()
	result := make([]string, len(groups))

	for i, group := range groups {
		result[i] = group.String()
	}

	return result, nil
}

// MatchString reports whether text contains a match.
func (p *Pattern) MatchString(text string) (bool, error) {
	return p.re.MatchString(text)
}

// String returns the expression as registered, before normalization.
func (p *Pattern) String() string {
	return p.source
}
