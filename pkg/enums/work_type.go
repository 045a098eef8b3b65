package enums

import "fmt"

// WorkType categorizes the academic work an order asks for.
type WorkType string

const (
	WorkTypeEssay        WorkType = "essay"
	WorkTypeCoursework   WorkType = "coursework"
	WorkTypeDiploma      WorkType = "diploma"
	WorkTypeControl      WorkType = "control"
	WorkTypePractice     WorkType = "practice"
	WorkTypePresentation WorkType = "presentation"
	WorkTypeTest         WorkType = "test"
)

var validWorkTypes = []WorkType{
	WorkTypeEssay,
	WorkTypeCoursework,
	WorkTypeDiploma,
	WorkTypeControl,
	WorkTypePractice,
	WorkTypePresentation,
	WorkTypeTest,
}

// String implements fmt.Stringer.
func (w WorkType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WorkType.
func (w WorkType) IsValid() bool {
	for _, candidate := range validWorkTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWorkType converts raw input into a WorkType.
func ParseWorkType(value string) (WorkType, error) {
	for _, candidate := range validWorkTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid work type %q", value)
}
