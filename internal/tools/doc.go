// Package tools implements the pointer-driven editing tools: freehand
// lasso, live-wire smart lasso, smart wand and paintbrush.
//
// Every tool satisfies the same Tool interface
// (OnPointerDown/Move/Up/OnCancel); switching tools swaps the active
// implementation rather than branching on a tag. Tools own a working
// mask while a gesture is in flight and hand a finished mask to the
// selection store on commit; the store clones it, so working buffers
// never escape.
//
// Long-running segmentation (the wand) runs asynchronously: each
// request carries a monotonically increasing id and a cancellable
// context, and results are applied only if their id is still current.
// Cancelling a gesture bumps the id and cancels the context; a late
// result from a cancelled gesture is dropped, never committed.
package tools
