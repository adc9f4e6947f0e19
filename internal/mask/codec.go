package mask

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/adler32"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/mapwright/roomcarve/internal/geometry"
)

// Decode failures. Callers must treat any of these as "no mask
// available"; the decoder never returns a partially filled mask.
var (
	// ErrBadSignature means the byte stream does not start with the
	// container signature.
	ErrBadSignature = errors.New("mask: bad container signature")

	// ErrBadChunk means a chunk is truncated, out of order, or fails its
	// CRC32 check.
	ErrBadChunk = errors.New("mask: corrupt chunk")

	// ErrBadStream means the image-data stream violates its framing:
	// broken zlib header, stored-block length mismatch, missing final
	// block, or Adler32 mismatch.
	ErrBadStream = errors.New("mask: corrupt image-data stream")

	// ErrUnsupported means the container is well formed but uses a
	// feature this codec never writes (compressed deflate blocks,
	// non-zero row filters, color images, 16-bit depth, interlacing).
	ErrUnsupported = errors.New("mask: unsupported container feature")
)

// signature is the 8-byte PNG signature; the container is a strict subset
// of PNG so standard viewers can open persisted masks.
var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// boundsKeyword identifies the text chunk carrying the mask's normalized
// bounds rectangle.
const boundsKeyword = "roomBounds"

// Encode serializes the mask into the lossless single-channel container.
//
// The output is a strict subset of PNG, so standard viewers can open
// persisted masks while Decode can hold the framing to a much tighter
// contract than a general PNG reader. Decode(Encode(m)) is bit-exact for
// width, height, bounds and data.
//
// Parameters:
//   - m: The mask to persist. Width and height must fit in uint32;
//     bounds are written as text metadata.
//
// Returns:
//   - []byte: The encoded container, ready to write to disk or wrap in
//     a data URL via EncodeDataURL.
//
// # Algorithm
//
// The container is emitted chunk by chunk:
//
//  1. 8-byte PNG signature.
//
//  2. IHDR: width and height big-endian, bit depth 8, color type 0
//     (grayscale), compression/filter/interlace all zero.
//
//  3. tEXt: keyword "roomBounds", value "minX,minY,maxX,maxY" with
//     each component formatted in Go 'g' notation.
//
//  4. IDAT: a zlib stream (CMF 0x78, FLG 0x01) of stored-mode deflate
//     blocks over the rows, each row prefixed with filter byte 0,
//     split at the 65535-byte stored-block limit, followed by the
//     big-endian Adler-32 of the raw row data.
//
//  5. IEND.
//
// Every chunk carries the standard CRC-32 (reflected polynomial
// 0xEDB88320) over its type and payload.
func Encode(m *RoomMask) []byte {
	var out []byte
	out = append(out, signature...)

	// Header: width, height, 8-bit depth, grayscale, no interlace.
	hdr := make([]byte, 13)
	binary.BigEndian.PutUint32(hdr[0:], uint32(m.Width))
	binary.BigEndian.PutUint32(hdr[4:], uint32(m.Height))
	hdr[8] = 8 // bit depth
	hdr[9] = 0 // color type: grayscale
	// bytes 10-12: compression, filter, interlace, all zero
	out = appendChunk(out, "IHDR", hdr)

	out = appendChunk(out, "tEXt", encodeBoundsText(m.Bounds))

	out = appendChunk(out, "IDAT", encodeImageData(m))

	return appendChunk(out, "IEND", nil)
}

// Decode parses bytes produced by Encode and reconstructs the mask.
//
// Parameters:
//   - data: A complete encoded container, signature through IEND.
//
// Returns:
//   - *RoomMask: The reconstructed mask, never partial; on any error
//     the mask is nil.
//   - error: Non-nil when the input deviates from what Encode emits.
//     ErrBadSignature, ErrBadChunk and ErrUnsupported classify the
//     failure; use errors.Is to test.
//
// # Validation
//
// Decode is deliberately stricter than a general PNG reader. It checks
// the signature, every chunk CRC, duplicate or missing IHDR, the zlib
// CMF/FLG pair (including the mod-31 check and the FDICT bit), that
// every deflate block is stored-mode with a consistent LEN/~LEN pair,
// that exactly one final block terminates the stream with no trailing
// data, the Adler-32 trailer, and that every row carries filter byte 0.
// Anything else the container could in principle express (compressed
// deflate, other filters) is rejected with ErrUnsupported rather than
// silently producing a wrong mask.
func Decode(data []byte) (*RoomMask, error) {
	if len(data) < len(signature) || string(data[:len(signature)]) != string(signature) {
		return nil, ErrBadSignature
	}
	rest := data[len(signature):]

	var (
		width, height int
		haveHeader    bool
		bounds        geometry.Bounds
		stream        []byte
		done          bool
	)
	for !done {
		typ, payload, remaining, err := readChunk(rest)
		if err != nil {
			return nil, err
		}
		rest = remaining
		switch typ {
		case "IHDR":
			if haveHeader {
				return nil, fmt.Errorf("%w: duplicate header", ErrBadChunk)
			}
			if len(payload) != 13 {
				return nil, fmt.Errorf("%w: header length %d", ErrBadChunk, len(payload))
			}
			width = int(binary.BigEndian.Uint32(payload[0:]))
			height = int(binary.BigEndian.Uint32(payload[4:]))
			if payload[8] != 8 || payload[9] != 0 || payload[10] != 0 || payload[11] != 0 || payload[12] != 0 {
				return nil, fmt.Errorf("%w: depth=%d colorType=%d", ErrUnsupported, payload[8], payload[9])
			}
			haveHeader = true
		case "tEXt":
			b, ok := decodeBoundsText(payload)
			if ok {
				bounds = b
			}
		case "IDAT":
			if !haveHeader {
				return nil, fmt.Errorf("%w: image data before header", ErrBadChunk)
			}
			stream = append(stream, payload...)
		case "IEND":
			done = true
		default:
			// Unknown ancillary chunks are skipped, matching how PNG
			// readers treat chunks they do not understand.
		}
	}
	if !haveHeader || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: missing or empty header", ErrBadChunk)
	}

	raw, err := decodeImageData(stream, width, height)
	if err != nil {
		return nil, err
	}
	m := New(width, height, bounds)
	copy(m.Data, raw)
	return m, nil
}

// EncodeDataURL wraps Encode output as a base64 data URL, the form handed
// across the persistence boundary.
func EncodeDataURL(m *RoomMask) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(Encode(m))
}

// DecodeDataURL reverses EncodeDataURL. The prefix is matched loosely so
// data URLs produced by other encoders of the same container still parse.
func DecodeDataURL(s string) (*RoomMask, error) {
	idx := strings.Index(s, "base64,")
	if !strings.HasPrefix(s, "data:") || idx < 0 {
		return nil, fmt.Errorf("%w: not a base64 data URL", ErrBadSignature)
	}
	raw, err := base64.StdEncoding.DecodeString(s[idx+len("base64,"):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return Decode(raw)
}

// appendChunk appends one length/type/payload/CRC32 chunk. The CRC covers
// the type tag and payload, using the standard reflected polynomial.
func appendChunk(out []byte, typ string, payload []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	start := len(out)
	out = append(out, typ...)
	out = append(out, payload...)
	crc := crc32.ChecksumIEEE(out[start:])
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	return append(out, crcBuf[:]...)
}

// readChunk parses one chunk off the front of data, verifying its CRC.
func readChunk(data []byte) (typ string, payload, rest []byte, err error) {
	if len(data) < 12 {
		return "", nil, nil, fmt.Errorf("%w: truncated", ErrBadChunk)
	}
	n := binary.BigEndian.Uint32(data)
	if uint32(len(data)-12) < n {
		return "", nil, nil, fmt.Errorf("%w: truncated payload", ErrBadChunk)
	}
	body := data[4 : 8+n]
	want := binary.BigEndian.Uint32(data[8+n:])
	if crc32.ChecksumIEEE(body) != want {
		return "", nil, nil, fmt.Errorf("%w: crc mismatch in %q", ErrBadChunk, string(body[:4]))
	}
	return string(body[:4]), body[4:], data[12+n:], nil
}

// encodeBoundsText renders the bounds as "keyword\0minX,minY,maxX,maxY".
func encodeBoundsText(b geometry.Bounds) []byte {
	text := strings.Join([]string{
		strconv.FormatFloat(b.MinX, 'g', -1, 64),
		strconv.FormatFloat(b.MinY, 'g', -1, 64),
		strconv.FormatFloat(b.MaxX, 'g', -1, 64),
		strconv.FormatFloat(b.MaxY, 'g', -1, 64),
	}, ",")
	out := append([]byte(boundsKeyword), 0)
	return append(out, text...)
}

// decodeBoundsText parses a text chunk, returning ok=false for chunks
// with a different keyword or malformed values.
func decodeBoundsText(payload []byte) (geometry.Bounds, bool) {
	sep := -1
	for i, c := range payload {
		if c == 0 {
			sep = i
			break
		}
	}
	if sep < 0 || string(payload[:sep]) != boundsKeyword {
		return geometry.Bounds{}, false
	}
	parts := strings.Split(string(payload[sep+1:]), ",")
	if len(parts) != 4 {
		return geometry.Bounds{}, false
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return geometry.Bounds{}, false
		}
		vals[i] = v
	}
	return geometry.Bounds{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, true
}

// maxStoredBlock is the largest payload a stored-mode deflate block can
// carry (LEN is a 16-bit field).
const maxStoredBlock = 0xFFFF

// encodeImageData produces the zlib stream for the image-data chunk:
// 2-byte header, stored-mode deflate blocks over the filter-prefixed
// rows, Adler32 trailer.
func encodeImageData(m *RoomMask) []byte {
	// Raw scanlines: each row prefixed by filter byte 0 (no filtering).
	raw := make([]byte, 0, m.Height*(m.Width+1))
	for y := 0; y < m.Height; y++ {
		raw = append(raw, 0)
		raw = append(raw, m.Data[y*m.Width:(y+1)*m.Width]...)
	}

	// zlib header: deflate, 32K window, no preset dictionary, check bits
	// chosen so the header is divisible by 31.
	out := []byte{0x78, 0x01}

	for off := 0; ; off += maxStoredBlock {
		end := off + maxStoredBlock
		final := byte(0)
		if end >= len(raw) {
			end = len(raw)
			final = 1
		}
		block := raw[off:end]
		n := uint16(len(block))
		out = append(out, final, byte(n), byte(n>>8), byte(^n), byte(^n>>8))
		out = append(out, block...)
		if final == 1 {
			break
		}
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], adler32.Checksum(raw))
	return append(out, trailer[:]...)
}

// decodeImageData validates the zlib framing and stored-block structure
// and returns the de-filtered pixel rows.
func decodeImageData(stream []byte, width, height int) ([]byte, error) {
	if len(stream) < 6 {
		return nil, fmt.Errorf("%w: stream too short", ErrBadStream)
	}
	cmf, flg := stream[0], stream[1]
	if cmf&0x0F != 8 {
		return nil, fmt.Errorf("%w: compression method %d", ErrUnsupported, cmf&0x0F)
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return nil, fmt.Errorf("%w: zlib header check failed", ErrBadStream)
	}
	if flg&0x20 != 0 {
		return nil, fmt.Errorf("%w: preset dictionary", ErrUnsupported)
	}

	body := stream[2 : len(stream)-4]
	raw := make([]byte, 0, height*(width+1))
	sawFinal := false
	for off := 0; off < len(body); {
		hdr := body[off]
		if btype := (hdr >> 1) & 3; btype != 0 {
			return nil, fmt.Errorf("%w: deflate block type %d", ErrUnsupported, btype)
		}
		if off+5 > len(body) {
			return nil, fmt.Errorf("%w: truncated block header", ErrBadStream)
		}
		n := uint16(body[off+1]) | uint16(body[off+2])<<8
		nlen := uint16(body[off+3]) | uint16(body[off+4])<<8
		if nlen != ^n {
			return nil, fmt.Errorf("%w: stored length check failed", ErrBadStream)
		}
		off += 5
		if off+int(n) > len(body) {
			return nil, fmt.Errorf("%w: truncated stored block", ErrBadStream)
		}
		raw = append(raw, body[off:off+int(n)]...)
		off += int(n)
		if hdr&1 == 1 {
			if off != len(body) {
				return nil, fmt.Errorf("%w: data after final block", ErrBadStream)
			}
			sawFinal = true
		}
	}
	if !sawFinal {
		return nil, fmt.Errorf("%w: missing final block", ErrBadStream)
	}

	want := binary.BigEndian.Uint32(stream[len(stream)-4:])
	if adler32.Checksum(raw) != want {
		return nil, fmt.Errorf("%w: adler32 mismatch", ErrBadStream)
	}

	if len(raw) != height*(width+1) {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d image", ErrBadStream, len(raw), width, height)
	}
	pixels := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := raw[y*(width+1):]
		if row[0] != 0 {
			return nil, fmt.Errorf("%w: row filter %d", ErrUnsupported, row[0])
		}
		copy(pixels[y*width:], row[1:width+1])
	}
	return pixels, nil
}
