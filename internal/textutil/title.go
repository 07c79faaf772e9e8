package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title converts identifiers such as "reduce_fps" or "convergence" into
// display text ("Reduce Fps", "Convergence").
func Title(value string) string {
	value = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(value))
	if value == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.Join(strings.Fields(value), " "))
}
