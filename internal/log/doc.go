// Package log provides secure logging built on top of the standard slog
// package.
//
// formcourier types the operator's e-mail address, phone number and message
// into third-party forms, so those values appear in many code paths. The
// SecureHandler masks them, and common credentials, before a record reaches
// the underlying handler:
//   - contact attributes (email, phone, message)
//   - e-mail addresses found inside any string value
//   - literal values registered with WithRedactedValues, in strings and errors
//   - HTTP credentials (Authorization, Cookie, Set-Cookie) and bearer tokens
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose,
//		log.WithRedactedValues(contact.Phone, contact.Message))
//	logger.Debug("filling field", "field", "email", "email", contact.Email)
//	// field=email email=***REDACTED***
package log
