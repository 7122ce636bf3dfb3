package managers

// FetchOptions controls reads, use DefaultFetchOptions unless there is a reason not to
type FetchOptions struct {
	// Cache stores the loaded entity in the entity cache
	Cache bool
	// Force skips the entity cache and reads the document store
	Force bool
}

// SetOptions controls writes
type SetOptions struct {
	// Merge writes only the supplied fields, otherwise the document is replaced
	Merge bool
}

// FindOptions controls cross user reminder scans
type FindOptions struct {
	// SkipDisabledDM leaves out reminders of users who disabled direct messages
	SkipDisabledDM bool
}

var (
	DefaultFetchOptions = FetchOptions{Cache: true}
	DefaultSetOptions   = SetOptions{Merge: true}
)
