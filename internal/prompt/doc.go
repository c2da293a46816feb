// Package prompt asks the operator for the run settings on the console.
//
// Values come in this order: input file path, email, phone, message and
// delay in seconds. Values already supplied by flags or the config file are
// not asked for again.
package prompt
