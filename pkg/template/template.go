// Package template renders prompt templates with named variables.
//
// Placeholders use double braces: {{name}}. Rendering fails closed when any
// placeholder is left unresolved, so a template bug can never leak literal
// placeholder text to a model.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// MissingVariablesError reports placeholders with no bound variable.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("template: missing variables: %s", strings.Join(e.Names, ", "))
}

// Render substitutes every bound variable into tmpl. If any placeholder
// remains unresolved it returns a MissingVariablesError listing the names,
// sorted and deduplicated.
func Render(tmpl string, vars map[string]string) (string, error) {
	missing := make(map[string]bool)

	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := vars[name]
		if !ok {
			missing[name] = true
			return match
		}
		return val
	})

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", &MissingVariablesError{Names: names}
	}

	return out, nil
}

// Placeholders returns the distinct variable names referenced by tmpl, in
// order of first appearance.
func Placeholders(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
