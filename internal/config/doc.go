// Package config provides the run configuration for formcourier.
// It defines the defaults, the optional YAML config file, and validation of
// the merged settings coming from flags, the file and the interactive prompt.
package config
