package audit

// Writer is the destination for audit events.
type Writer interface {
	// Write appends an event to the log.
	Write(event *Event) error

	// Close releases any resources held by the writer.
	Close() error

	// LastHash returns the hash of the most recently written event.
	LastHash() string
}

// NopWriter discards all events. Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = NopWriter{}

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }
