// Package scene defines the scene node contract, the catalog of scene factories and the
// write-once result slot used by dialogs.
package scene
