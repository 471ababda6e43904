// Package rules evaluates ordered glob rules that assign S3 object attributes
// (content type, cache headers, ACL, user metadata) to local files.
//
// Rules are applied cumulatively in declaration order: every rule whose glob
// matches contributes its overrides, and later rules win on key collisions.
// The reserved OnlyForEnv attribute is never returned as an attribute; it gates
// whether the file takes part in the sync for the current environment.
//
// As in shell globs, a path segment starting with a dot is only matched by a
// pattern segment that also starts with a dot: "*" does not match ".env" and
// "**" does not descend into ".well-known".
package rules

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// OnlyForEnv restricts a matching file to a single deployment environment.
const OnlyForEnv = "OnlyForEnv"

// ContentTypeKey is the attribute holding the object content type.
const ContentTypeKey = "ContentType"

// Override sets a single attribute.
type Override struct {
	Key   string
	Value string
}

// Rule pairs a glob, relative to the site root, with the overrides it applies.
type Rule struct {
	Glob      string
	Overrides []Override
}

// Attributes is the merged attribute set for one file.
type Attributes map[string]string

// Clone returns a copy that is safe to mutate.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Apply applies the overrides in order, later ones winning.
func (a Attributes) Apply(overrides []Override) {
	for _, o := range overrides {
		a[o.Key] = o.Value
	}
}

// Matcher matches files under a resolved local root against a rule list.
type Matcher struct {
	root  string
	rules []Rule
}

// NewMatcher creates a matcher for files under root.
func NewMatcher(root string, rules []Rule) *Matcher {
	return &Matcher{
		root:  filepath.Clean(root),
		rules: rules,
	}
}

// Match returns the merged attributes for absPath and whether the file is
// included for env. Files outside the root match no rule.
func (m *Matcher) Match(absPath, env string) (Attributes, bool) {
	attrs := Attributes{}

	rel, err := filepath.Rel(m.root, absPath)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.ToSlash(rel)
		for _, rule := range m.rules {
			if matchGlob(rule.Glob, rel) {
				attrs.Apply(rule.Overrides)
			}
		}
	}

	only, gated := attrs[OnlyForEnv]
	if !gated {
		return attrs, true
	}
	delete(attrs, OnlyForEnv)
	return attrs, only == env
}

// matchGlob anchors pattern at the site root; the root itself is not part of
// the pattern so characters in it are never read as glob syntax.
func matchGlob(pattern, rel string) bool {
	pattern = normalizeGlob(pattern)
	matched, err := doublestar.Match(pattern, rel)
	if err != nil || !matched {
		return false
	}
	if !strings.HasPrefix(rel, ".") && !strings.Contains(rel, "/.") {
		return true
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

// matchSegments matches segment by segment, refusing wildcards on dot segments.
func matchSegments(pattern, rel []string) bool {
	if len(pattern) == 0 {
		return len(rel) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], rel) {
			return true
		}
		for i := range rel {
			if strings.HasPrefix(rel[i], ".") {
				return false
			}
			if matchSegments(pattern[1:], rel[i+1:]) {
				return true
			}
		}
		return false
	}
	if len(rel) == 0 {
		return false
	}
	if strings.HasPrefix(rel[0], ".") && !strings.HasPrefix(pattern[0], ".") {
		return false
	}
	matched, err := doublestar.Match(pattern[0], rel[0])
	return err == nil && matched && matchSegments(pattern[1:], rel[1:])
}

func normalizeGlob(pattern string) string {
	pattern = filepath.ToSlash(pattern)
	pattern = strings.TrimLeft(pattern, "/")
	if pattern == "" {
		return pattern
	}
	return strings.TrimPrefix(path.Clean(pattern), "./")
}

// Rules is an ordered rule list that decodes from the YAML form
//
//	- "*.html":
//	    CacheControl: max-age=0
//	- "assets/**":
//	    headers:
//	      CacheControl: max-age=31536000
//	- "*.log":
//	    OnlyForEnv: prod
//
// Values nested one level below an attribute key are flattened into the
// rule; the nesting key itself is discarded.
type Rules []Rule

// UnmarshalYAML implements yaml.Unmarshaler preserving declaration order.
func (r *Rules) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := Parse(node)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Parse decodes a rule sequence node.
func Parse(node *yaml.Node) ([]Rule, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: rules must be a list of {glob: attributes} entries", node.Line)
	}

	var rules []Rule
	for _, entry := range node.Content {
		if entry.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: rule must be a mapping of glob to attributes", entry.Line)
		}
		for i := 0; i+1 < len(entry.Content); i += 2 {
			glob, attrs := entry.Content[i], entry.Content[i+1]
			if !doublestar.ValidatePattern(normalizeGlob(glob.Value)) {
				return nil, fmt.Errorf("line %d: invalid glob %q", glob.Line, glob.Value)
			}
			overrides, err := parseOverrides(attrs)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", glob.Value, err)
			}
			rules = append(rules, Rule{Glob: glob.Value, Overrides: overrides})
		}
	}
	return rules, nil
}

func parseOverrides(node *yaml.Node) ([]Override, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}

	var overrides []Override
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch value.Kind {
		case yaml.ScalarNode:
			overrides = append(overrides, Override{Key: key.Value, Value: value.Value})
		case yaml.MappingNode:
			for j := 0; j+1 < len(value.Content); j += 2 {
				k, v := value.Content[j], value.Content[j+1]
				if v.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("line %d: %s.%s must be a scalar", v.Line, key.Value, k.Value)
				}
				overrides = append(overrides, Override{Key: k.Value, Value: v.Value})
			}
		default:
			return nil, fmt.Errorf("line %d: %s must be a scalar or a mapping", value.Line, key.Value)
		}
	}
	return overrides, nil
}
