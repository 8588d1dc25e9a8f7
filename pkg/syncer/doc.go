// Package syncer rewrites the lines that ::tyranno:: marker comments govern.
//
// A marker block is one or more consecutive comment lines of the form
//
//	# ::tyranno:: version = "${{ project.version }}"
//
// Each marker line is a template for one generated line. The block is followed
// by exactly as many previously generated lines, which a sync replaces with the
// freshly rendered templates. Everything else in the file passes through
// unchanged.
//
// The comment syntax comes from a static table keyed by file extension or
// exact file name; see ProfileFor.
package syncer
