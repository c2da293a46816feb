// Package model defines the data structures shared across formcourier.
//
// This package contains the following main types:
//   - Contact: the values typed into every contact form
//   - Status and Outcome: the terminal result of processing one site
//   - Run: one batch invocation and its ordered outcomes
//
// The models serialize to JSON for report output and run history storage.
package model
