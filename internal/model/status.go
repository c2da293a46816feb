package model

import "fmt"

// Status is the terminal state of one site's processing attempt.
// Heuristic misses are statuses of their own, not errors.
type Status string

const (
	// StatusSubmitted means a submit control was found and clicked.
	StatusSubmitted Status = "submitted"

	// StatusNoContactPage means neither the landed URL nor any link pointed to a contact page.
	StatusNoContactPage Status = "no contact page found"

	// StatusNoForm means the contact page had no form element.
	StatusNoForm Status = "no form found"

	// StatusNoSubmit means the form fields were filled but nothing could submit them.
	StatusNoSubmit Status = "submit control not found"

	// StatusError means navigation or browser automation failed.
	StatusError Status = "error"
)

// AllStatuses lists every status in reporting order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusNoContactPage,
	StatusNoForm,
	StatusNoSubmit,
	StatusError,
}

// String returns the status text.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts stored status text back into a Status.
func ParseStatus(text string) (Status, error) {
	s := Status(text)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", text)
	}
	return s, nil
}
