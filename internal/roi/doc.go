// Package roi memoizes the per-region preprocessing the interactive
// tools share: grayscale conversion, local contrast enhancement,
// denoising, edge detection and the live-wire cost pyramid.
//
// Building these artifacts for a region of interest costs tens of
// milliseconds, far too much to repeat on every pointer move, so the
// cache builds them once per key and publishes the finished, immutable
// entry. Entries are never mutated after publication; concurrent readers
// either see a complete entry or trigger/wait on a build, never a
// partial one.
//
// Staleness is the caller's problem: if the underlying image changes
// under a key, only an explicit Clear (or LRU pressure) removes the old
// artifacts.
package roi
