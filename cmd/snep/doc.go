// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for snep.
//
// Command handlers are thin: they load configuration through the App's
// ConfigProvider, build a resolver.Cache and syncer.Syncer for the
// invocation, and render results and diagnostics. All domain behavior lives
// in the internal packages.
package cmd
