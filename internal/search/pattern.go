package search

import (
	"fmt"
	"regexp"
	"regexp/syntax"

	"github.com/SteelMorgan/log-viewer/internal/domain"
)

// BuildPattern turns a SearchSpec into regular expression source.
//
//	literal            -> QuoteMeta(p)
//	literal+whole word -> \bQuoteMeta(p)\b
//	regex              -> p
//	regex+whole word   -> \b(?:p)\b
//
// Case-insensitive specs get the (?i) flag.
func BuildPattern(spec domain.SearchSpec) string {
	pattern := spec.Pattern
	switch {
	case !spec.UseRegex && spec.WholeWord:
		pattern = `\b` + regexp.QuoteMeta(pattern) + `\b`
	case !spec.UseRegex:
		pattern = regexp.QuoteMeta(pattern)
	case spec.WholeWord:
		pattern = `\b(?:` + pattern + `)\b`
	}
	if !spec.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	return pattern
}

// Compile builds the matcher for spec.
// Empty or uncompilable patterns fail with domain.ErrInvalidPattern.
// Regex patterns are parsed on their own before wrapping, so an unbalanced
// pattern cannot pair with the whole-word group.
func Compile(spec domain.SearchSpec) (*regexp.Regexp, error) {
	if spec.Pattern == "" {
		return nil, fmt.Errorf("%w: pattern is empty", domain.ErrInvalidPattern)
	}
	if spec.UseRegex {
		if _, err := syntax.Parse(spec.Pattern, syntax.Perl); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPattern, err)
		}
	}
	re, err := regexp.Compile(BuildPattern(spec))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPattern, err)
	}
	return re, nil
}
