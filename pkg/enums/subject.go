package enums

import "fmt"

// Subject is the academic discipline an order belongs to.
type Subject string

const (
	SubjectLaw        Subject = "law"
	SubjectEconomics  Subject = "economics"
	SubjectManagement Subject = "management"
	SubjectPsychology Subject = "psychology"
	SubjectPedagogy   Subject = "pedagogy"
	SubjectMarketing  Subject = "marketing"
	SubjectIT         Subject = "it"
	SubjectMedicine   Subject = "medicine"
	SubjectHistory    Subject = "history"
	SubjectOther      Subject = "other"
)

var validSubjects = []Subject{
	SubjectLaw,
	SubjectEconomics,
	SubjectManagement,
	SubjectPsychology,
	SubjectPedagogy,
	SubjectMarketing,
	SubjectIT,
	SubjectMedicine,
	SubjectHistory,
	SubjectOther,
}

// String implements fmt.Stringer.
func (s Subject) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Subject.
func (s Subject) IsValid() bool {
	for _, candidate := range validSubjects {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubject converts raw input into a Subject.
func ParseSubject(value string) (Subject, error) {
	for _, candidate := range validSubjects {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subject %q", value)
}
