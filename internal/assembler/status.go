package assembler

// Status tells the caller what kind of change a pass produced.
type Status string

const (
	// StatusCreated means there was no previous output.
	StatusCreated Status = "created"
	// StatusUpdated means the previous output was regenerated and carried
	// no custom jobs.
	StatusUpdated Status = "updated"
	// StatusMerged means custom jobs from the previous output were carried
	// over.
	StatusMerged Status = "merged"
	// StatusRebuilt means the previous output could not be parsed and the
	// pipeline was generated from scratch.
	StatusRebuilt Status = "rebuilt"
)

// Statuses lists every status in a stable order.
func Statuses() []Status {
	return []Status{StatusCreated, StatusUpdated, StatusMerged, StatusRebuilt}
}
