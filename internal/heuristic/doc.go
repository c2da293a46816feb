// Package heuristic holds the rules used to guess the role of page elements.
//
// A Rule is a set of alternative conditions on an element's tag and one of its
// attributes. The same Rule renders to a CSS selector list for real browser
// engines (Selector) and evaluates directly against an attribute map (Match),
// so the guessing logic can be tested without a browser.
//
// Attribute values are matched case-sensitively, as CSS attribute selectors do.
// Contact-page URL detection is the one case-insensitive check.
package heuristic
