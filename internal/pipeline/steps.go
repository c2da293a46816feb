package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/formcourier/internal/heuristic"
	"github.com/nao1215/formcourier/internal/model"
)

// Step names, in pipeline order.
const (
	StepNavigate     = "navigate"
	StepContactPage  = "discover-contact-page"
	StepDiscoverForm = "discover-form"
	StepFillFields   = "fill-fields"
	StepSubmit       = "submit"
)

// NavigateStep loads the target URL and records where the browser landed.
type NavigateStep struct {
	logger *slog.Logger
}

// NewNavigateStep creates a NavigateStep.
func NewNavigateStep(logger *slog.Logger) *NavigateStep {
	return &NavigateStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *NavigateStep) Name() string {
	return StepNavigate
}

// Do navigates to attempt.URL.
func (s *NavigateStep) Do(ctx context.Context, attempt *Attempt) error {
	if err := attempt.Page.Navigate(ctx, attempt.URL, attempt.NavigationTimeout); err != nil {
		return err
	}

	landed, err := attempt.Page.URL(ctx)
	if err != nil {
		return fmt.Errorf("read page url: %w", err)
	}
	attempt.LandedURL = landed

	s.logger.Debug("page loaded", "url", attempt.URL, "landed", landed)
	return nil
}

// ContactPageStep decides which page holds the contact form.
// A landed URL containing a contact keyword is used as is; otherwise the first
// contact link is followed.
type ContactPageStep struct {
	logger *slog.Logger
}

// NewContactPageStep creates a ContactPageStep.
func NewContactPageStep(logger *slog.Logger) *ContactPageStep {
	return &ContactPageStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ContactPageStep) Name() string {
	return StepContactPage
}

// Do finds the contact page, finishing with StatusNoContactPage if there is none.
func (s *ContactPageStep) Do(ctx context.Context, attempt *Attempt) error {
	if heuristic.IsContactURL(attempt.LandedURL) {
		attempt.ContactURL = attempt.LandedURL
		s.logger.Debug("landed on contact page", "url", attempt.LandedURL)
		return nil
	}

	link, found, err := attempt.Page.Query(ctx, heuristic.ContactLink)
	if err != nil {
		return fmt.Errorf("find contact link: %w", err)
	}
	if !found {
		attempt.Finish(model.StatusNoContactPage)
		return nil
	}

	href, ok, err := link.Attribute(ctx, "href")
	if err != nil {
		return fmt.Errorf("read contact link: %w", err)
	}
	if !ok || href == "" {
		attempt.Finish(model.StatusNoContactPage)
		return nil
	}

	target, err := heuristic.ResolveLink(attempt.URL, href)
	if err != nil {
		return fmt.Errorf("resolve contact link: %w", err)
	}

	s.logger.Debug("following contact link", "url", attempt.URL, "href", href, "target", target)
	if err := attempt.Page.Navigate(ctx, target, attempt.NavigationTimeout); err != nil {
		return err
	}
	attempt.ContactURL = target
	return nil
}

// FormStep locates the first form on the contact page.
type FormStep struct {
	logger *slog.Logger
}

// NewFormStep creates a FormStep.
func NewFormStep(logger *slog.Logger) *FormStep {
	return &FormStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *FormStep) Name() string {
	return StepDiscoverForm
}

// Do finds the form, finishing with StatusNoForm if the page has none.
func (s *FormStep) Do(ctx context.Context, attempt *Attempt) error {
	form, found, err := attempt.Page.Query(ctx, heuristic.Form)
	if err != nil {
		return fmt.Errorf("find form: %w", err)
	}
	if !found {
		attempt.Finish(model.StatusNoForm)
		return nil
	}
	attempt.Form = form
	return nil
}

// field pairs a lookup rule with the contact value typed into it.
type field struct {
	rule  heuristic.Rule
	value func(model.Contact) string
}

var contactFields = []field{
	{rule: heuristic.EmailField, value: func(c model.Contact) string { return c.Email }},
	{rule: heuristic.PhoneField, value: func(c model.Contact) string { return c.Phone }},
	{rule: heuristic.MessageField, value: func(c model.Contact) string { return c.Message }},
}

// FillStep fills the email, phone and message fields that exist on the page.
// Missing fields are skipped.
type FillStep struct {
	logger *slog.Logger
}

// NewFillStep creates a FillStep.
func NewFillStep(logger *slog.Logger) *FillStep {
	return &FillStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *FillStep) Name() string {
	return StepFillFields
}

// Do fills each field found.
func (s *FillStep) Do(ctx context.Context, attempt *Attempt) error {
	for _, f := range contactFields {
		el, found, err := attempt.Page.Query(ctx, f.rule)
		if err != nil {
			return fmt.Errorf("find %s field: %w", f.rule.Name, err)
		}
		if !found {
			s.logger.Debug("field not found", "field", f.rule.Name, "url", attempt.URL)
			continue
		}
		if err := el.Fill(ctx, f.value(attempt.Contact)); err != nil {
			return fmt.Errorf("fill %s field: %w", f.rule.Name, err)
		}
		attempt.Filled = append(attempt.Filled, f.rule.Name)
	}
	return nil
}

// SubmitStep clicks the first submit control.
type SubmitStep struct {
	logger *slog.Logger
}

// NewSubmitStep creates a SubmitStep.
func NewSubmitStep(logger *slog.Logger) *SubmitStep {
	return &SubmitStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *SubmitStep) Name() string {
	return StepSubmit
}

// Do clicks the submit control, finishing with StatusSubmitted or StatusNoSubmit.
func (s *SubmitStep) Do(ctx context.Context, attempt *Attempt) error {
	control, found, err := attempt.Page.Query(ctx, heuristic.SubmitControl)
	if err != nil {
		return fmt.Errorf("find submit control: %w", err)
	}
	if !found {
		attempt.Finish(model.StatusNoSubmit)
		return nil
	}
	if err := control.Click(ctx); err != nil {
		return fmt.Errorf("click submit control: %w", err)
	}
	attempt.Finish(model.StatusSubmitted)
	return nil
}

// DefaultSteps returns the submission steps in order.
func DefaultSteps(logger *slog.Logger) []Step {
	return []Step{
		NewNavigateStep(logger),
		NewContactPageStep(logger),
		NewFormStep(logger),
		NewFillStep(logger),
		NewSubmitStep(logger),
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
