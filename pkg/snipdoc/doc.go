// SPDX-License-Identifier: MPL-2.0

// Package snipdoc is the structural document model shared by the parser, the
// dependency resolver and the merge engine.
//
// A document is an unnamed root Element whose children are Text, Attribute and
// Element nodes in source order. Nodes are immutable: every edit returns a new
// Element that shares the untouched subtrees with the original, so earlier
// values stay valid after an edit.
//
// Directive lines that came from source text are replayed verbatim when
// rendering, which makes parse followed by render the identity on untouched
// input. Nodes built in code have no recorded spelling and are rendered through
// the Directives supplied by the markup syntax.
package snipdoc
