package watch

// Kind is the kind of change a filesystem event reports.
type Kind int

const (
	// KindOther covers metadata-only changes such as chmod.
	KindOther Kind = iota
	// KindCreate is emitted when a file or directory appears.
	KindCreate
	// KindModify is emitted when a file is written.
	KindModify
	// KindRemove is emitted when a path is deleted or renamed away.
	KindRemove
)

// String returns the string representation of the event kind
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	case KindRemove:
		return "remove"
	default:
		return "other"
	}
}

// Event is one change notification. It is consumed once.
type Event struct {
	Kind  Kind
	Paths []string
}
