// Package dirstat sums the sizes of regular files below one or more roots.
//
// It walks directory trees using fastwalk for parallel traversal. Errors on
// individual entries (permission denied, entries vanishing mid-walk) are
// counted and skipped: an unreadable file contributes zero bytes and never
// aborts the walk. Symbolic links are not followed.
package dirstat
