// Package common holds helpers shared by several services.
//
// It detects the identity a station introduces itself with when no client
// name is configured.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
