// Package testutil contains helpers shared by tests: content builders,
// backends that route requests by persona, and run contexts wired to
// in-memory stores. They are not intended for production usage.
package testutil
