package presentation

// Field names one tracked part of a client's presentation.
type Field string

const (
	FieldDisplayName Field = "display_name"
	FieldHeader      Field = "header"
	FieldFooter      Field = "footer"
	FieldGroupKey    Field = "group_key"
)

func (f Field) String() string {
	return string(f)
}

func (f Field) IsValid() bool {
	switch f {
	case FieldDisplayName, FieldHeader, FieldFooter, FieldGroupKey:
		return true
	default:
		return false
	}
}

// Fields returns every tracked field in application order.
func Fields() []Field {
	return []Field{FieldDisplayName, FieldHeader, FieldFooter, FieldGroupKey}
}

// Snapshot is the last applied presentation state of one client.
// It is a comparable value; two snapshots are equal iff every field is equal.
type Snapshot struct {
	DisplayName string `json:"display_name"`
	Header      string `json:"header"`
	Footer      string `json:"footer"`
	GroupKey    string `json:"group_key"`
}

// Get returns the value of field f. Unknown fields read as empty.
func (s Snapshot) Get(f Field) string {
	switch f {
	case FieldDisplayName:
		return s.DisplayName
	case FieldHeader:
		return s.Header
	case FieldFooter:
		return s.Footer
	case FieldGroupKey:
		return s.GroupKey
	default:
		return ""
	}
}

// With returns a copy of s with field f set to value.
func (s Snapshot) With(f Field, value string) Snapshot {
	switch f {
	case FieldDisplayName:
		s.DisplayName = value
	case FieldHeader:
		s.Header = value
	case FieldFooter:
		s.Footer = value
	case FieldGroupKey:
		s.GroupKey = value
	}
	return s
}
