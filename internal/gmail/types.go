package gmail

// Message is the metadata slice of a Gmail message the organizer needs:
// identity, current labels, the From and Subject headers, the server
// receive time and the size estimate.
type Message struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	From         string
	Subject      string
	InternalDate int64 // milliseconds since epoch
	SizeEstimate int64 // bytes
}

// Label is a Gmail label.
type Label struct {
	ID   string
	Name string
}

// ListPage is one page of a message listing.
type ListPage struct {
	IDs           []string
	NextPageToken string
	// SizeEstimate is Gmail's resultSizeEstimate for the query, used
	// for label counts without fetching every message.
	SizeEstimate int64
}

// ModifySpec describes a label mutation. Empty slices are omitted from
// the request.
type ModifySpec struct {
	Add    []string
	Remove []string
}

// Empty reports whether the spec would change nothing.
func (m ModifySpec) Empty() bool {
	return len(m.Add) == 0 && len(m.Remove) == 0
}
