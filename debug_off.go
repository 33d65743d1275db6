//go:build !hlldebug

package hll

const debug = false
