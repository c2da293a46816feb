// Package main provides the entry point for the formcourier CLI.
//
// formcourier visits a list of websites, finds each site's contact form,
// fills in an e-mail address, phone number and message, and submits it.
// One "<url>: <outcome>" line per site is written to a results log.
//
// Usage:
//
//	formcourier
//	formcourier run --list sites.txt --email sales@example.com
//	formcourier history
//
// See --help for all available options.
package main

// main is the entry point for formcourier.
func main() {
	Execute()
}
