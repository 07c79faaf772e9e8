// Package textutil provides small text helpers shared by the CLI, the worker,
// and notifications: filename sanitization, display casing, and a generic
// conditional.
package textutil
