// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on error, so test
// bodies can focus on the snippet files they build and inspect.
package testutil
