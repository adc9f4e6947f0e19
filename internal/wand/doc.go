// Package wand implements color-based region growing: click a seed
// pixel and the selection floods outward through perceptually similar
// colors.
//
// Colors are compared in CIE L*a*b* space so the tolerance behaves the
// way a user expects across hues and lightness levels. The
// preprocessing-aware variant additionally refuses to cross strong image
// edges, except through registered entrance zones (doorways), and uses a
// seeded deterministic deferral so growth is reproducible and not biased
// along the scan axes.
package wand
