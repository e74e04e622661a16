package enums

import "fmt"

// OrderFileKind classifies a file reference attached to an order.
type OrderFileKind string

const (
	OrderFileInstructions OrderFileKind = "instructions"
	OrderFileSubmission   OrderFileKind = "submission"
	OrderFileRevision     OrderFileKind = "revision"
)

var validOrderFileKinds = []OrderFileKind{
	OrderFileInstructions,
	OrderFileSubmission,
	OrderFileRevision,
}

// IsValid reports whether the value is a known OrderFileKind.
func (k OrderFileKind) IsValid() bool {
	for _, candidate := range validOrderFileKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOrderFileKind converts raw input into an OrderFileKind.
func ParseOrderFileKind(value string) (OrderFileKind, error) {
	for _, candidate := range validOrderFileKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order file kind %q", value)
}

// WriterAvailability is the self-reported capacity of a writer.
type WriterAvailability string

const (
	WriterAvailable WriterAvailability = "available"
	WriterBusy      WriterAvailability = "busy"
	WriterAway      WriterAvailability = "away"
)

// IsValid reports whether the value is a known WriterAvailability.
func (w WriterAvailability) IsValid() bool {
	return w == WriterAvailable || w == WriterBusy || w == WriterAway
}
