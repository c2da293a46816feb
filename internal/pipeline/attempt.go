package pipeline

import (
	"time"

	"github.com/nao1215/formcourier/internal/browser"
	"github.com/nao1215/formcourier/internal/model"
)

// Attempt is the state threaded through the steps for one target URL.
type Attempt struct {
	// URL is the target address as loaded from the input list.
	URL string

	// Page is the open browser page for this attempt.
	Page browser.Page

	// Contact holds the values to type into the form.
	Contact model.Contact

	// NavigationTimeout bounds every page load.
	NavigationTimeout time.Duration

	// LandedURL is the page address after the first navigation and redirects.
	LandedURL string

	// ContactURL is the page treated as the contact page.
	ContactURL string

	// Form is the first form found on the contact page.
	Form browser.Element

	// Filled lists the fields populated so far.
	Filled []string

	// PerformedSteps records the names of the steps that completed.
	PerformedSteps []string

	status   model.Status
	finished bool
}

// NewAttempt creates the state for processing url on page.
func NewAttempt(url string, page browser.Page, contact model.Contact, timeout time.Duration) *Attempt {
	return &Attempt{
		URL:               url,
		Page:              page,
		Contact:           contact,
		NavigationTimeout: timeout,
	}
}

// Finish ends the attempt with a terminal status. Later steps do not run.
func (a *Attempt) Finish(status model.Status) {
	a.status = status
	a.finished = true
}

// Finished reports whether a step has ended the attempt.
func (a *Attempt) Finished() bool {
	return a.finished
}

// Status returns the terminal status set by Finish.
func (a *Attempt) Status() model.Status {
	return a.status
}
