// Package pipeline drives one contact-form submission per site and runs
// those submissions as a sequential batch.
//
// A submission attempt is a Pipeline of Steps executed against an Attempt:
// navigate, discover the contact page, discover the form, fill the known
// fields, submit. A step either returns an error, which ends the attempt as an
// error outcome, or may finish the attempt early with a heuristic-miss status
// such as "no form found". The Worker owns the browser session for one attempt
// and always closes it.
//
// Batch runs the Worker over a URL list strictly in order, one site at a time,
// spacing consecutive sites by the configured delay.
package pipeline
