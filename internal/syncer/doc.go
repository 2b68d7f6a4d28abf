// SPDX-License-Identifier: MPL-2.0

// Package syncer keeps the snippets embedded in source files in sync.
//
// A sync validates both documents, reconciles the snippets they define
// differently, resolves each document's dependency closure against both
// documents and the search path, rewrites the snips and imports containers,
// and renders the results. Nothing touches the filesystem until Commit.
package syncer
