package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/campusd/admission-api/internal/models"
)

// EligibilityVerdict is the outcome of the rule evaluation that runs
// before any capacity check.
type EligibilityVerdict string

const (
	VerdictEligible            EligibilityVerdict = "ELIGIBLE"
	VerdictPrerequisiteMissing EligibilityVerdict = "PREREQUISITE_MISSING"
	VerdictCgpaBelowMinimum    EligibilityVerdict = "CGPA_BELOW_MINIMUM"
)

// ParseCGPA parses the profile's CGPA. A missing or non-numeric value
// is reported as invalid so the minimum-CGPA check fails closed.
func ParseCGPA(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// EvaluateEligibility applies the admission rule to a student profile.
// The prerequisite check runs first and short-circuits the CGPA check:
// a student missing the prerequisite is rejected regardless of CGPA.
func EvaluateEligibility(profile *models.StudentProfile, rule models.AdmissionRule) EligibilityVerdict {
	if rule.HasPrerequisite() && !profile.HasCompleted(rule.Prerequisite) {
		return VerdictPrerequisiteMissing
	}
	cgpa, ok := ParseCGPA(profile.CGPA)
	if !ok || cgpa < rule.MinCGPA {
		return VerdictCgpaBelowMinimum
	}
	return VerdictEligible
}
