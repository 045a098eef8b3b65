package enums

import "fmt"

// FileKind separates student task material from author deliverables.
type FileKind string

const (
	FileKindTask FileKind = "task"
	FileKindWork FileKind = "work"
)

var validFileKinds = []FileKind{
	FileKindTask,
	FileKindWork,
}

// String implements fmt.Stringer.
func (f FileKind) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FileKind.
func (f FileKind) IsValid() bool {
	for _, candidate := range validFileKinds {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFileKind converts raw input into a FileKind.
func ParseFileKind(value string) (FileKind, error) {
	for _, candidate := range validFileKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid file kind %q", value)
}
