// Package middleware provides HTTP middleware for shared-secret API
// authentication.
package middleware
