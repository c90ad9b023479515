// Package config defines the station settings and provides helpers to load,
// validate, save and watch them in YAML format.
//
// Settings come from a YAML file, may be overridden by ICE_* environment
// variables (optionally read from a .env file next to the YAML file), and a
// small subset is hot-reloaded while the station runs.
package config
