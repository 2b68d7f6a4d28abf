// SPDX-License-Identifier: MPL-2.0

// Package markup reads and writes snippet directives embedded in source
// comments.
//
// A directive is a whole line made of optional indentation, the opener of a
// comment form (for example "#@"), the directive text and, for block comment
// forms, the closer. Three directives exist:
//
//	#@name[        begin element "name"
//	#@] comment    end the innermost element
//	#@key: value   attribute of the innermost element
//
// Every other line is text. The parser records the exact spelling of each
// directive line so that rendering an unmodified document reproduces its
// source byte for byte.
package markup
