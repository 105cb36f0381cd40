package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusd/admission-api/internal/models"
)

func profileWith(cgpa string, completed ...string) *models.StudentProfile {
	set := make(map[string]struct{}, len(completed))
	for _, c := range completed {
		set[c] = struct{}{}
	}
	p := &models.StudentProfile{CompletedSubjects: set}
	p.UID = "stu-1"
	p.CGPA = cgpa
	return p
}

func TestParseCGPA(t *testing.T) {
	cases := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"7.5", 7.5, true},
		{" 8.0 ", 8.0, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"+Inf", 0, false},
		{"-Inf", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCGPA(tc.raw)
		assert.Equal(t, tc.valid, ok, "raw=%q", tc.raw)
		if tc.valid {
			assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
		}
	}
}

func TestEvaluateEligibilityPrerequisiteRunsFirst(t *testing.T) {
	rule := models.AdmissionRule{
		CourseKey:    "algorithms ii",
		Prerequisite: "algorithms i",
		MinCGPA:      7.0,
		StrictCGPA:   8.0,
		SeatLimit:    80,
	}

	// High CGPA does not rescue a missing prerequisite.
	verdict := EvaluateEligibility(profileWith("9.9"), rule)
	assert.Equal(t, VerdictPrerequisiteMissing, verdict)

	// With the prerequisite done, CGPA is checked next.
	verdict = EvaluateEligibility(profileWith("6.9", "algorithms i"), rule)
	assert.Equal(t, VerdictCgpaBelowMinimum, verdict)

	verdict = EvaluateEligibility(profileWith("7.0", "algorithms i"), rule)
	assert.Equal(t, VerdictEligible, verdict)
}

func TestEvaluateEligibilityNoPrerequisite(t *testing.T) {
	rule := models.AdmissionRule{CourseKey: "intro", MinCGPA: 7.0, StrictCGPA: 8.0, SeatLimit: 80}

	assert.Equal(t, VerdictEligible, EvaluateEligibility(profileWith("7.0"), rule))
	assert.Equal(t, VerdictCgpaBelowMinimum, EvaluateEligibility(profileWith("6.99"), rule))
}

func TestEvaluateEligibilityInvalidCGPAFailsClosed(t *testing.T) {
	rule := models.AdmissionRule{CourseKey: "intro", MinCGPA: 7.0, StrictCGPA: 8.0, SeatLimit: 80}

	for _, raw := range []string{"", "n/a", "NaN", "Inf"} {
		verdict := EvaluateEligibility(profileWith(raw), rule)
		assert.Equal(t, VerdictCgpaBelowMinimum, verdict, "raw=%q", raw)
	}
}
