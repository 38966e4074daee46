// Package masterdata holds the read-only game tables the scenes query at runtime.
//
// A snapshot is decoded once, every primary and secondary index is built at load time, and
// the resulting Database is never mutated afterwards.
package masterdata
