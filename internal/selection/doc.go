// Package selection owns the shared editing state the tools write and
// the rendering layer reads: the committed mask, the active tool, the
// tunables panel, and entrance-lock status.
//
// A Store is created per editing session, never shared globally, and
// guards its state with a mutex. Commits are atomic: the store clones
// incoming masks so it never aliases a tool's working buffer, and each
// mutation bumps a version stamp so readers can cheaply detect change.
// Subscribers are notified after every mutation, outside the lock.
package selection
