// Package refine adjusts a rough mask boundary to follow nearby image
// edges: the mask interior re-grows inside a band around the original
// boundary, freezing wherever edge energy says a wall is in the way.
package refine
