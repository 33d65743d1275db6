//go:build hlldebug

package hll

// debug enables invariant verification after every insert and merge.  Build
// with -tags hlldebug to turn it on.
const debug = true
