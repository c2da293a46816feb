package heuristic

import (
	"strings"
)

// Operator is the attribute comparison used by a Condition.
type Operator int

const (
	// OpPresent matches any element with the tag; Attr and Value are ignored.
	OpPresent Operator = iota

	// OpContains matches when the attribute value contains Value ([attr*='v']).
	OpContains

	// OpEquals matches when the attribute value equals Value ([attr='v']).
	OpEquals
)

// Condition is a single tag/attribute test.
type Condition struct {
	Tag   string
	Attr  string
	Value string
	Op    Operator
}

// selector renders the condition as a CSS compound selector.
func (c Condition) selector() string {
	switch c.Op {
	case OpContains:
		return c.Tag + "[" + c.Attr + "*='" + c.Value + "']"
	case OpEquals:
		return c.Tag + "[" + c.Attr + "='" + c.Value + "']"
	default:
		return c.Tag
	}
}

// match evaluates the condition against an element.
func (c Condition) match(tag string, attrs map[string]string) bool {
	if !strings.EqualFold(tag, c.Tag) {
		return false
	}
	if c.Op == OpPresent {
		return true
	}
	value, ok := attrs[c.Attr]
	if !ok {
		return false
	}
	if c.Op == OpEquals {
		return value == c.Value
	}
	return strings.Contains(value, c.Value)
}

// Rule identifies one kind of element. An element matches the rule when it
// satisfies any of its conditions.
type Rule struct {
	// Name is a short label used in logs and outcome details.
	Name string

	// Any lists alternative conditions.
	Any []Condition
}

// Selector returns the rule as a CSS selector list, in condition order.
func (r Rule) Selector() string {
	parts := make([]string, len(r.Any))
	for i, c := range r.Any {
		parts[i] = c.selector()
	}
	return strings.Join(parts, ", ")
}

// Match reports whether an element with the given tag and attributes
// satisfies the rule.
func (r Rule) Match(tag string, attrs map[string]string) bool {
	for _, c := range r.Any {
		if c.match(tag, attrs) {
			return true
		}
	}
	return false
}

// fieldRule builds the name/id/placeholder rule used for form fields.
// The placeholder keyword is capitalized because placeholder text is prose.
func fieldRule(name, tag, keyword string) Rule {
	return Rule{
		Name: name,
		Any: []Condition{
			{Tag: tag, Attr: "name", Value: keyword, Op: OpContains},
			{Tag: tag, Attr: "id", Value: keyword, Op: OpContains},
			{Tag: tag, Attr: "placeholder", Value: capitalize(keyword), Op: OpContains},
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Predefined rules.
var (
	// ContactLink finds a hyperlink whose address mentions "contact".
	ContactLink = Rule{
		Name: "contact link",
		Any:  []Condition{{Tag: "a", Attr: "href", Value: "contact", Op: OpContains}},
	}

	// Form finds any form element.
	Form = Rule{
		Name: "form",
		Any:  []Condition{{Tag: "form", Op: OpPresent}},
	}

	// EmailField finds an email input.
	EmailField = fieldRule("email", "input", "email")

	// PhoneField finds a phone input.
	PhoneField = fieldRule("phone", "input", "phone")

	// MessageField finds a message textarea.
	MessageField = fieldRule("message", "textarea", "message")

	// SubmitControl finds a clickable submit button or input.
	SubmitControl = Rule{
		Name: "submit control",
		Any: []Condition{
			{Tag: "button", Attr: "type", Value: "submit", Op: OpEquals},
			{Tag: "input", Attr: "type", Value: "submit", Op: OpEquals},
		},
	}
)
