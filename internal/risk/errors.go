package risk

import "fmt"

// UnknownDefectError is returned when an observation names a defect type the catalog does not know
type UnknownDefectError struct {
	DefectType string
}

func (e *UnknownDefectError) Error() string {
	return fmt.Sprintf("unknown defect type: %q", e.DefectType)
}

// InvalidObservationError rejects an observation whose values fall outside their domain
type InvalidObservationError struct {
	RoomID     string
	DefectType string
	Field      string
	Reason     string
}

func (e *InvalidObservationError) Error() string {
	return fmt.Sprintf("invalid observation in room %q (defect %q): %s %s", e.RoomID, e.DefectType, e.Field, e.Reason)
}

// ConfigurationError reports a broken static table. Raised at startup it is fatal.
type ConfigurationError struct {
	Table  string
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid %s configuration: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("invalid %s configuration for %q: %s", e.Table, e.Key, e.Reason)
}

// EmptyPropertyError means there is nothing to aggregate. It stands for
// "insufficient data" and is never turned into a score of 0.
type EmptyPropertyError struct {
	PropertyID string
}

func (e *EmptyPropertyError) Error() string {
	if e.PropertyID == "" {
		return "insufficient data: no room scores to aggregate"
	}
	return fmt.Sprintf("insufficient data: no room scores to aggregate for property %q", e.PropertyID)
}
