package render

import "strings"

// Fields substitutes {{key}} placeholders for the known personalization keys.
// Unknown placeholders are left untouched so a typo is visible in the output
// instead of silently disappearing.
func Fields(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}
