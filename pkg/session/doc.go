/*
Package session serializes access to save slots.

A Manager wraps any ports.SnapshotStore so that concurrent saves, restores and
read-modify-write updates against the same slot never interleave, while different
slots proceed in parallel. Per-slot locks are reference counted and dropped as soon
as no caller holds them.
*/
package session
