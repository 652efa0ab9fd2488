package marketreport

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAddressUnresolvable Kind = "address_unresolvable"
	KindCountyNotInDataset  Kind = "county_not_in_dataset"
	KindDatasetUnavailable  Kind = "dataset_unavailable"
)

// Error is the only error the pipeline returns. Address is always set;
// County is set once the address has been resolved.
type Error struct {
	Kind    Kind
	Address string
	County  string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAddressUnresolvable:
		return fmt.Sprintf("%s: %q", e.Kind, e.Address)
	case KindCountyNotInDataset:
		return fmt.Sprintf("%s: %s", e.Kind, e.County)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the pipeline error kind of err, or "" when err is not a
// pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// UserMessage is the chat-facing text for a pipeline failure.
func UserMessage(err error) string {
	var pe *Error
	if !errors.As(err, &pe) {
		return "An internal error occurred. Please check the logs."
	}
	switch pe.Kind {
	case KindAddressUnresolvable:
		return fmt.Sprintf("Could not determine the county for **%s**. Please check the address and try again.", pe.Address)
	case KindCountyNotInDataset:
		return fmt.Sprintf("No market data found for **%s**. The county has been logged for review.", pe.County)
	case KindDatasetUnavailable:
		return "CRITICAL ERROR: the market dataset could not be loaded. This is a system configuration problem; please notify the bot operator."
	default:
		return "An internal error occurred. Please check the logs."
	}
}
