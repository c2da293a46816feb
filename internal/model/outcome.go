package model

import (
	"time"
)

// Outcome is the result recorded for one target URL.
// Exactly one Outcome is produced per URL, in input order.
type Outcome struct {
	// URL is the normalized target address as loaded from the input file.
	URL string `json:"url"`

	// Status is the terminal state of the attempt.
	Status Status `json:"status"`

	// Detail carries the failure description when Status is StatusError.
	Detail string `json:"detail,omitempty"`

	// ContactURL is the page treated as the contact page, if one was found.
	ContactURL string `json:"contact_url,omitempty"`

	// FilledFields names the fields that were populated ("email", "phone", "message").
	FilledFields []string `json:"filled_fields,omitempty"`

	// StartedAt is when processing of this URL began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long processing took, including browser setup and teardown.
	Duration time.Duration `json:"duration"`
}

// NewErrorOutcome builds an error outcome carrying err's description.
func NewErrorOutcome(url string, err error) Outcome {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Outcome{
		URL:    url,
		Status: StatusError,
		Detail: detail,
	}
}

// String returns the outcome text written to the results log.
// Errors render as "error: <detail>"; every other status renders as its text.
func (o Outcome) String() string {
	if o.Status == StatusError {
		if o.Detail == "" {
			return StatusError.String()
		}
		return StatusError.String() + ": " + o.Detail
	}
	return o.Status.String()
}

// LogLine returns the "<url>: <outcome>" line recorded in the results log.
func (o Outcome) LogLine() string {
	return o.URL + ": " + o.String()
}

// IsSubmitted reports whether the form was submitted.
func (o Outcome) IsSubmitted() bool {
	return o.Status == StatusSubmitted
}
