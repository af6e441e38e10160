// Package pyproject reads pyproject.toml's anchor data: the project
// name, declared build requirements, and the tool section scmver is
// configured from.
package pyproject

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/jaxxstorm/scmver/internal/distname"
)

// toolNames are in precedence order: every present section is merged
// key by key, and an earlier name's value wins over a later one's. scmver
// is the primary name; setuptools_scm is accepted so a project
// migrating off setuptools_scm keeps its existing [tool.setuptools_scm]
// table working unchanged.
var toolNames = []string{"scmver", "setuptools_scm"}

// Data is pyproject.toml's data relevant to version inference.
type Data struct {
	Path           string
	ToolName       string
	Project        map[string]any
	Section        map[string]any
	IsRequired     bool
	SectionPresent bool
	ProjectPresent bool
	BuildRequires  []string
}

// ProjectName returns [project].name, or "" if absent.
func (d *Data) ProjectName() string {
	if name, ok := d.Project["name"].(string); ok {
		return name
	}
	return ""
}

// CanonicalProjectName is ProjectName normalized per PEP 503.
func (d *Data) CanonicalProjectName() string {
	name := d.ProjectName()
	if name == "" {
		return ""
	}
	return distname.Canonicalize(name)
}

// ProjectVersion returns [project].version, or "" when the project
// declares dynamic=["version"] (the expected case).
func (d *Data) ProjectVersion() string {
	if v, ok := d.Project["version"].(string); ok {
		return v
	}
	return ""
}

// Empty is the zero-value payload used when pyproject.toml is absent.
func Empty() *Data {
	return &Data{Path: "pyproject.toml", ToolName: toolNames[0]}
}

// Read loads and parses path, extracting [project] and the merge of
// tool.scmver and tool.setuptools_scm (tool.scmver winning per key). A
// missing file returns os.ReadFile's error; callers check os.IsNotExist
// and fall back to Empty()'s behavior.
func Read(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	buildSystem, _ := doc["build-system"].(map[string]any)
	requires := stringSlice(buildSystem["requires"])
	isRequired := hasBuildPackage(requires, "scmver") || hasBuildPackage(requires, "setuptools-scm")

	toolTable, _ := doc["tool"].(map[string]any)

	// Shallow-merge every recognized tool section, primary name winning
	// over its aliases key by key.
	section := map[string]any{}
	sectionPresent := false
	toolName := toolNames[0]
	for i := len(toolNames) - 1; i >= 0; i-- {
		s, ok := toolTable[toolNames[i]].(map[string]any)
		if !ok {
			continue
		}
		sectionPresent = true
		toolName = toolNames[i]
		for k, v := range s {
			section[k] = v
		}
	}

	project, projectPresent := doc["project"].(map[string]any)
	if project == nil {
		project = map[string]any{}
	}

	return &Data{
		Path:           path,
		ToolName:       toolName,
		Project:        project,
		Section:        section,
		IsRequired:     isRequired,
		SectionPresent: sectionPresent,
		ProjectPresent: projectPresent,
		BuildRequires:  requires,
	}, nil
}

func hasBuildPackage(requires []string, canonicalName string) bool {
	for _, req := range requires {
		if distname.Canonicalize(extractPackageName(req)) == canonicalName {
			return true
		}
	}
	return false
}

// extractPackageName strips a PEP 508 requirement string down to its bare
// package name, stopping at the first version-specifier, extras, or
// environment-marker character.
func extractPackageName(requirement string) string {
	for i, r := range requirement {
		switch r {
		case '=', '<', '>', '!', '~', '[', ';', ' ':
			return requirement[:i]
		}
	}
	return requirement
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
