// Package database provides SQLite-based run history for formcourier.
//
// Every run is stored with one row per site outcome so that earlier runs can
// be listed and inspected with "formcourier history". The database is a
// single file, formcourier.db, in the XDG data directory, opened through the
// CGO-free modernc.org/sqlite driver.
package database
