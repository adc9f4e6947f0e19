// Package mask implements the raster side of the region engine: the
// RoomMask coverage grid, conversion between masks and normalized-space
// polygons, morphology and brush operations, and the lossless byte codec
// used to persist masks.
//
// # RoomMask
//
// A RoomMask is a Width×Height grid of 8-bit coverage values (0 = outside,
// 255 = fully inside, intermediate values = feathered/anti-aliased edge)
// anchored to a normalized bounding rectangle. Masks are value-owned: a
// tool mid-gesture works on its own clone and hands the result to the
// selection store on commit, so nothing here is synchronized.
//
// # Raster / vector conversion
//
// RasterizePolygon performs an even-odd scanline fill sampling pixel
// centers; ExtractPolygon runs marching squares over the grid, stitches
// the emitted segments into closed loops, keeps the largest loop and
// simplifies it. The two are approximate inverses for reasonable shapes.
//
// # Codec
//
// Encode/Decode implement a minimal single-channel PNG-compatible
// container (stored-mode deflate, CRC32 chunk checksums, Adler32 stream
// trailer) with the mask bounds embedded as a text chunk. Decoding is
// strict: anything the encoder would not produce is a named error, never
// a partial mask.
package mask
