// Package fallback implements the last-resort version sources: a
// PKG-INFO reader (the typical shape of an extracted sdist) and the
// parentdir_prefix_version rule, tried only after every VCS-backed
// stage has failed.
package fallback

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jaxxstorm/scmver/internal/pep440"
	"github.com/jaxxstorm/scmver/internal/scmversion"
)

// ReadPkgInfo scans path for an RFC-822-style "Version:" header, the
// minimal subset of PKG-INFO's format this inference stage needs.
// Returns ("", nil) if the file exists but carries no Version header —
// a recoverable "stage not applicable" outcome, not an error.
func ReadPkgInfo(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

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
		if key == "Version" {
			return strings.TrimSpace(line[idx+1:]), nil
		}
	}
	return "", nil
}

// ParentDirPrefixVersion implements the parentdir_prefix_version rule:
// when root's basename starts with prefix, the remainder is parsed as a
// version via tagRe, yielding a preformatted ScmVersion. Returns
// ok=false when the basename doesn't match, letting the orchestrator
// fall through to the next stage.
func ParentDirPrefixVersion(root, prefix string, tagRe *regexp.Regexp, normalize bool, cfg scmversion.SchemeConfig) (*scmversion.ScmVersion, bool, error) {
	basename := filepath.Base(root)
	if prefix == "" || !strings.HasPrefix(basename, prefix) {
		return nil, false, nil
	}

	remainder := strings.TrimPrefix(basename, prefix)
	tag, err := pep440.ParseTag(tagRe, remainder, normalize, false)
	if err != nil {
		return nil, false, err
	}

	return &scmversion.ScmVersion{
		Tag:          tag,
		Distance:     0,
		Preformatted: true,
		Config:       cfg,
	}, true, nil
}
