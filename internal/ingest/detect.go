package ingest

import (
	"strings"

	"github.com/Veraticus/foundry-forecast/internal/datetemplate"
)

// TemplatePrefix marks alias entries that are date templates rather than
// header text.
const TemplatePrefix = "$"

// DetectTemplate picks the first candidate template that reads the file's
// dates: the first value of its Date column, or failing that any header
// cell. It returns "" when none applies.
func DetectTemplate(records [][]string, aliases AliasLookup, candidates []string) string {
	if len(records) == 0 || len(candidates) == 0 {
		return ""
	}

	var samples []string
	if len(records) > 1 {
		for i, h := range records[0] {
			if canonical, ok := aliases.LookupAlias(strings.ToLower(strings.TrimSpace(h))); ok && canonical == DateName {
				if v := strings.TrimSpace(cell(records[1], i)); v != "" {
					samples = append(samples, v)
				}
				break
			}
		}
	}
	for _, h := range records[0] {
		samples = append(samples, strings.TrimSpace(h))
	}

	for _, candidate := range candidates {
		pattern := strings.TrimPrefix(candidate, TemplatePrefix)
		tmpl := datetemplate.New(pattern)
		for _, s := range samples {
			if _, err := tmpl.Parse(s); err == nil {
				return pattern
			}
		}
	}
	return ""
}
