package notes

import (
	"fmt"
	"strings"
)

// Status is the publish state carried in a template's notes.
type Status int

const (
	Draft Status = iota
	Published
	Retired
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case Draft:
		return "Draft"
	case Published:
		return "Published"
	case Retired:
		return "Retired"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name (used by YAML/JSON run reports).
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts both status names and annotation values.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := parseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// wireValue is the value written to the "published" annotation field.
// Existing annotations use the strings "False", "True" and "Retired".
func (s Status) wireValue() string {
	switch s {
	case Published:
		return "True"
	case Retired:
		return "Retired"
	}
	return "False"
}

func parseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "draft":
		return Draft, nil
	case "true", "published":
		return Published, nil
	case "retired":
		return Retired, nil
	}
	return Draft, fmt.Errorf("unknown publish status %q", v)
}
