// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation, resource and suggestions of a
// failure; the issue catalog holds Markdown guidance per failure class,
// rendered with glamour by the CLI.
package issue
