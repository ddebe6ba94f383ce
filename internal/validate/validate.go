// Package validate checks a loaded mission for problems that would break a
// save or leave the archive inconsistent.
package validate

import (
	"fmt"
	"slices"
	"strings"

	"missionkit/internal/mission"
	"missionkit/internal/pipeline"
	"missionkit/internal/property"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeReservedKeyInvalid       = "reserved_key_invalid"
	codeCollapseFailed           = "collapse_failed"
	codeMissingName              = "missing_name"
	codeDuplicateName            = "duplicate_name"
	codeMissingResourceReference = "missing_resource_reference"
	codeUnreferencedFile         = "unreferenced_file"
)

// ContainerObject is the Issue.Object value for mission-level issues.
const ContainerObject = "mission"

type Issue struct {
	Severity Severity `yaml:"severity" json:"severity"`
	Code     string   `yaml:"code" json:"code"`
	Message  string   `yaml:"message" json:"message"`
	Object   string   `yaml:"object" json:"object"`
	Kind     string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Name     string   `yaml:"name,omitempty" json:"name,omitempty"`
	File     string   `yaml:"file,omitempty" json:"file,omitempty"`
}

type Report struct {
	Issues []Issue `yaml:"issues" json:"issues"`
}

func (r *Report) HasErrors() bool {
	return slices.ContainsFunc(r.Issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// Run checks m without modifying it.
func Run(m *mission.Mission) (*Report, error) {
	if m == nil || m.Container == nil {
		return nil, fmt.Errorf("mission is required")
	}

	issues := make([]Issue, 0)
	issues = append(issues, validateReservedKeys(m.Container)...)
	issues = append(issues, validateReferencedFiles(m)...)

	free := make(map[string]bool)
	for _, name := range m.Container.Files() {
		free[name] = true
	}
	for _, k := range pipeline.Kinds() {
		if t, ok := k.Template(); ok {
			delete(free, t)
		}
	}
	seen := make(map[string]*pipeline.Object)
	for _, obj := range m.Objects {
		if _, err := obj.Collapse(); err != nil {
			issues = append(issues, objectIssue(obj, SeverityError, codeCollapseFailed, err.Error()))
		}

		if !obj.HasName() {
			if namedKind(obj.Kind()) {
				issues = append(issues, objectIssue(obj, SeverityWarn, codeMissingName, "object has no Name property"))
			}
		} else {
			key := obj.Kind().String() + "|" + strings.ToLower(obj.Name())
			if first, ok := seen[key]; ok {
				issues = append(issues, objectIssue(obj, SeverityWarn, codeDuplicateName,
					fmt.Sprintf("name %q already used by %s", obj.Name(), first.ID())))
			} else {
				seen[key] = obj
			}
		}

		issues = append(issues, validateResources(obj, free)...)
	}

	return &Report{Issues: issues}, nil
}

// namedKind reports whether objects of k are expected to carry a Name.
func namedKind(k pipeline.Kind) bool {
	switch k {
	case pipeline.Player, pipeline.UserData:
		return false
	default:
		return true
	}
}

func validateReservedKeys(c *mission.Container) []Issue {
	props := c.Properties()
	reserved := []struct {
		key string
		typ property.Type
	}{
		{mission.KeyExpandedSize, property.TypeInt},
		{mission.KeyBlankingPlates, property.TypeString},
		{mission.KeyMeta, property.TypeString},
	}

	var issues []Issue
	for _, r := range reserved {
		v, ok := props.Value(r.key)
		switch {
		case !ok:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeReservedKeyInvalid,
				Message:  fmt.Sprintf("reserved property %s is missing", r.key),
				Object:   ContainerObject,
			})
		case v.Type() != r.typ:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeReservedKeyInvalid,
				Message:  fmt.Sprintf("reserved property %s is %s, want %s", r.key, v.Type(), r.typ),
				Object:   ContainerObject,
			})
		}
	}
	return issues
}

// validateResources flags resource names that are neither owned by obj nor a
// leftover file still free to claim. Leftovers obj takes are removed from
// free.
func validateResources(obj *pipeline.Object, free map[string]bool) []Issue {
	datafile := obj.Datafile()
	props := obj.Properties()

	var issues []Issue
	taken := make(map[string]bool)
	for _, key := range obj.Kind().Resources() {
		v, ok := datafile.Value(key)
		if !ok {
			v, ok = props.Value(key)
		}
		if !ok || v.String() == "" || obj.HasFile(v.String()) || taken[v.String()] {
			continue
		}
		if free[v.String()] {
			delete(free, v.String())
			taken[v.String()] = true
			continue
		}
		issue := objectIssue(obj, SeverityError, codeMissingResourceReference,
			fmt.Sprintf("%s names %s, which is neither owned by the object nor a free leftover file", key, v.String()))
		issue.File = v.String()
		issues = append(issues, issue)
	}
	return issues
}

// validateReferencedFiles warns about leftover files nothing points at.
// Kind templates and the blanking plates file count as referenced.
func validateReferencedFiles(m *mission.Mission) []Issue {
	referenced := make(map[string]bool)
	for _, k := range pipeline.Kinds() {
		if t, ok := k.Template(); ok {
			referenced[t] = true
		}
	}
	mark := func(p *property.Properties) {
		for _, prop := range p.All() {
			if s, ok := prop.Value.AsString(); ok && s != "" {
				referenced[s] = true
			}
		}
	}
	mark(m.Container.Properties())
	for _, obj := range m.Objects {
		mark(obj.Properties())
		mark(obj.Datafile())
	}

	var issues []Issue
	for _, name := range m.Container.Files() {
		if referenced[name] {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeUnreferencedFile,
			Message:  fmt.Sprintf("archive file %s is not referenced by any property", name),
			Object:   ContainerObject,
			File:     name,
		})
	}
	return issues
}

func objectIssue(obj *pipeline.Object, severity Severity, code, message string) Issue {
	issue := Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Object:   obj.ID().String(),
		Kind:     obj.Kind().String(),
	}
	if obj.HasName() {
		issue.Name = obj.Name()
	}
	return issue
}
