package rules

import (
	"strings"

	"github.com/campusd/admission-api/internal/models"
)

// DefaultRule applies to every course without a configured entry.
var DefaultRule = models.AdmissionRule{
	MinCGPA:    7.0,
	StrictCGPA: 8.0,
	SeatLimit:  80,
}

// NormalizeCourse folds a course identifier to its canonical lookup
// key: lower-cased, trimmed, inner whitespace collapsed.
func NormalizeCourse(course string) string {
	return strings.ToLower(strings.Join(strings.Fields(course), " "))
}

// Catalog is an immutable course-to-rule mapping. Lookups never fail;
// unknown courses resolve to the default rule.
type Catalog struct {
	entries  map[string]models.AdmissionRule
	fallback models.AdmissionRule
}

// NewCatalog builds a catalog from the given rules, normalizing course
// keys. Later duplicates win.
func NewCatalog(entries []models.AdmissionRule) *Catalog {
	c := &Catalog{
		entries:  make(map[string]models.AdmissionRule, len(entries)),
		fallback: DefaultRule,
	}
	for _, rule := range entries {
		key := NormalizeCourse(rule.CourseKey)
		if key == "" {
			continue
		}
		rule.CourseKey = key
		rule.Prerequisite = NormalizeCourse(rule.Prerequisite)
		c.entries[key] = rule
	}
	return c
}

// Resolve returns the rule for the course, falling back to the default
// rule when the course is not configured.
func (c *Catalog) Resolve(course string) models.AdmissionRule {
	key := NormalizeCourse(course)
	if rule, ok := c.entries[key]; ok {
		return rule
	}
	rule := c.fallback
	rule.CourseKey = key
	return rule
}

// Len reports the number of configured entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
