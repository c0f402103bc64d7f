// Package plugins hosts plugin implementation subpackages. Plugins depend on
// internal/core for the registry and rule contracts only; storage, transport
// and blob backends stay out of reach (see architecture_test.go).
package plugins
