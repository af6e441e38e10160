package pep440

import (
	"fmt"
	"regexp"
)

// DefaultTagRegexPattern matches an optional project prefix, an optional
// leading v/V, the PEP 440 body as the "version" group, and discards any
// trailing "+..." build-metadata segment.
const DefaultTagRegexPattern = `^(?:[\w-]+-)?[vV]?(?P<version>[0-9][^+]*)(?:\+.*)?$`

// CompileTagRegex compiles pattern and validates it exposes a "version"
// named group or exactly one unnamed group, as required by the tag-regex
// contract.
func CompileTagRegex(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling tag regex %q: %w", pattern, err)
	}

	if re.SubexpIndex("version") != -1 {
		return re, nil
	}

	// No named "version" group: fall back to requiring exactly one
	// unnamed capture group.
	groups := re.NumSubexp()
	if groups != 1 {
		return nil, fmt.Errorf("tag regex %q must expose a %q named group or exactly one unnamed group, has %d", pattern, "version", groups)
	}
	return re, nil
}

// TagParseError reports a tag string that did not match the configured
// tag regex at all, or (from ParseTag) matched with an empty version body
// where none is allowed. It is distinct from a Version ParseError, which
// reports a regex match whose captured body the version type then
// rejected.
type TagParseError struct {
	Tag string
}

func (e *TagParseError) Error() string {
	return fmt.Sprintf("tag %q does not match the configured tag regex", e.Tag)
}

// ExtractVersionSubstring applies re to tag and returns the captured
// version body. Returns a *TagParseError if tag does not match at all.
func ExtractVersionSubstring(re *regexp.Regexp, tag string) (string, error) {
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return "", &TagParseError{Tag: tag}
	}

	if idx := re.SubexpIndex("version"); idx != -1 {
		return m[idx], nil
	}
	// Exactly one unnamed group, validated at compile time; index 1.
	if len(m) > 1 {
		return m[1], nil
	}
	return "", &TagParseError{Tag: tag}
}

// ParseTag extracts the version substring from tag using re, then parses
// it with the configured normalization. An empty captured substring is
// only legal when allowEmpty is true (the fallback/preformatted paths).
func ParseTag(re *regexp.Regexp, tag string, normalize bool, allowEmpty bool) (*Version, error) {
	body, err := ExtractVersionSubstring(re, tag)
	if err != nil {
		return nil, err
	}
	if body == "" {
		if allowEmpty {
			return nil, nil
		}
		return nil, &TagParseError{Tag: tag}
	}

	if normalize {
		return Parse(body)
	}
	return ParseRaw(body)
}
