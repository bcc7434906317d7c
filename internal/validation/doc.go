// Package validation checks upload destinations and stream options before
// any store call is made.
//
// Every failure is reported as a configuration error from the errors
// package, so callers can distinguish it from store failures.
package validation
