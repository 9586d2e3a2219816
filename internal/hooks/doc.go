// Package hooks dispatches generation lifecycle events.
//
// Handlers registered for before_write may veto a write by returning an
// error. Errors from after_write and validation_failed handlers are
// returned to the caller, which decides whether they matter.
package hooks
