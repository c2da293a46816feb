// Package target loads the list of websites to process.
//
// The input is plain text with one address per line. Blank lines and lines
// starting with "#" are skipped, and addresses without a scheme get "http://".
// Order is preserved and duplicates are kept.
package target
