// Package archival parses the keyword-substituted metadata files VCS
// export/archive operations leave behind (.git_archival.txt,
// .hg_archival.txt), synthesizing an ScmVersion without a live VCS
// checkout.
package archival

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jaxxstorm/scmver/internal/diagnostics"
	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/scmversion"
)

// parseKeyValue parses a simple RFC-822-style "key: value" file, one
// pair per line, stopping at the first blank line.
func parseKeyValue(data []byte) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		fields[key] = val
	}
	return fields
}

// describeNamePattern matches "<tag>-<distance>-g<hash>" with an optional
// trailing "-dirty" marker, the same shape git describe --long produces.
var describeNamePattern = regexp.MustCompile(`^(?P<tag>.+)-(?P<distance>\d+)-g(?P<hash>[0-9a-f]+)(?P<dirty>-dirty)?$`)

// ParseGitArchival parses a .git_archival.txt payload. Returns (nil, nil)
// when the file is present but unusable (unexpanded $Format:...$
// placeholders, or a describe-name without the describe shape and no
// ref-names fallback works) — a recoverable condition the orchestrator
// treats as "archive absent", after recording a warning. A describe-name
// of the describe shape whose tag the tag regex or version type rejects
// returns that error.
func ParseGitArchival(data []byte, tagRe *regexp.Regexp, normalize bool, cfg scmversion.SchemeConfig, warn *diagnostics.Sink) (*scmversion.ScmVersion, error) {
	fields := parseKeyValue(data)

	for key, val := range fields {
		if strings.HasPrefix(val, "$Format:") {
			warn.Warn("$Format:...$ placeholder in .git_archival.txt key %q was not expanded by git archive; treating archive as absent", key)
			return nil, nil
		}
	}

	node := ""
	if n, ok := fields["node"]; ok && n != "" {
		node = "g" + n
	}

	var nodeDate *time.Time
	if raw, ok := fields["node-date"]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			nodeDate = &t
		} else if t, err := time.Parse("2006-01-02", raw); err == nil {
			nodeDate = &t
		}
	}

	if describeName, ok := fields["describe-name"]; ok && describeName != "" {
		m := describeNamePattern.FindStringSubmatch(describeName)
		if m == nil {
			warn.Warn("could not parse describe-name %q from .git_archival.txt", describeName)
		} else {
			tagStr := m[describeNamePattern.SubexpIndex("tag")]
			distance, err := strconv.Atoi(m[describeNamePattern.SubexpIndex("distance")])
			if err != nil {
				return nil, fmt.Errorf("parsing describe-name distance: %w", err)
			}
			shortHash := m[describeNamePattern.SubexpIndex("hash")]

			tag, err := pep440.ParseTag(tagRe, tagStr, normalize, false)
			if err != nil {
				return nil, err
			}

			return &scmversion.ScmVersion{
				Tag:      tag,
				Distance: distance,
				Node:     "g" + shortHash,
				Dirty:    m[describeNamePattern.SubexpIndex("dirty")] != "",
				NodeDate: nodeDate,
				Config:   cfg,
			}, nil
		}
	}

	if refNames, ok := fields["ref-names"]; ok && refNames != "" {
		for _, ref := range strings.Split(refNames, ",") {
			ref = strings.TrimSpace(ref)
			ref = strings.TrimPrefix(ref, "tag: ")
			tag, err := pep440.ParseTag(tagRe, ref, normalize, true)
			if err != nil {
				continue
			}
			if tag == nil {
				continue
			}
			return &scmversion.ScmVersion{
				Tag:      tag,
				Distance: 0,
				Node:     node,
				NodeDate: nodeDate,
				Config:   cfg,
			}, nil
		}
	}

	warn.Warn(".git_archival.txt has neither a usable describe-name nor a ref-names tag")
	return nil, nil
}

// ParseHgArchival parses a .hg_archival.txt payload.
func ParseHgArchival(data []byte, tagRe *regexp.Regexp, normalize bool, cfg scmversion.SchemeConfig, warn *diagnostics.Sink) (*scmversion.ScmVersion, error) {
	fields := parseKeyValue(data)

	node := ""
	if n, ok := fields["node"]; ok && n != "" {
		node = "h" + n
	}

	tagStr, ok := fields["tag"]
	if !ok || tagStr == "" {
		tagStr, ok = fields["latesttag"]
	}
	if !ok || tagStr == "" || tagStr == "null" {
		warn.Warn(".hg_archival.txt has no tag or latesttag field")
		return nil, nil
	}

	distance := 0
	if raw, ok := fields["latesttagdistance"]; ok && raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing latesttagdistance %q: %w", raw, err)
		}
		distance = d
	}

	tag, err := pep440.ParseTag(tagRe, tagStr, normalize, false)
	if err != nil {
		return nil, err
	}

	return &scmversion.ScmVersion{
		Tag:      tag,
		Distance: distance,
		Node:     node,
		Branch:   fields["branch"],
		Config:   cfg,
	}, nil
}
