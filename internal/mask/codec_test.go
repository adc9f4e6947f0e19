package mask

import (
	"bytes"
	"errors"
	"hash/adler32"
	"hash/crc32"
	"image/png"
	"math/rand"
	"testing"

	"github.com/mapwright/roomcarve/internal/geometry"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sizes := []struct{ w, h int }{
		{8, 8}, {8, 1024}, {100, 37}, {257, 64}, {1024, 8},
	}
	rng := rand.New(rand.NewSource(7))
	for _, sz := range sizes {
		m := New(sz.w, sz.h, geometry.Bounds{MinX: 0.1, MinY: 0.2, MaxX: 0.9, MaxY: 0.8})
		for i := range m.Data {
			m.Data[i] = uint8(rng.Intn(256))
		}

		got, err := Decode(Encode(m))
		if err != nil {
			t.Fatalf("%dx%d: Decode failed: %v", sz.w, sz.h, err)
		}
		if got.Width != m.Width || got.Height != m.Height {
			t.Fatalf("%dx%d: dimensions %dx%d", sz.w, sz.h, got.Width, got.Height)
		}
		if got.Bounds != m.Bounds {
			t.Errorf("%dx%d: bounds %+v, want %+v", sz.w, sz.h, got.Bounds, m.Bounds)
		}
		if !bytes.Equal(got.Data, m.Data) {
			t.Errorf("%dx%d: pixel data differs", sz.w, sz.h)
		}
	}
}

func TestEncodeDecodeZeroMask(t *testing.T) {
	// 4x4 all-zero mask with full bounds: the canonical persistence case.
	m := New(4, 4, geometry.Bounds{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Bounds != m.Bounds {
		t.Errorf("bounds = %+v, want %+v", got.Bounds, m.Bounds)
	}
	for i, v := range got.Data {
		if v != 0 {
			t.Fatalf("pixel %d = %d, want 0", i, v)
		}
	}
}

func TestEncodeIsValidPNG(t *testing.T) {
	// The container is a strict PNG subset; the stdlib decoder must agree
	// on dimensions and pixels.
	m := New(16, 9, geometry.Bounds{MaxX: 1, MaxY: 1})
	for i := range m.Data {
		m.Data[i] = uint8(i * 7)
	}
	img, err := png.Decode(bytes.NewReader(Encode(m)))
	if err != nil {
		t.Fatalf("stdlib png rejected container: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 9 {
		t.Fatalf("stdlib decoded %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if uint8(r>>8) != m.Data[y*16+x] {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, r>>8, m.Data[y*16+x])
			}
		}
	}
}

func TestDecodeBadSignature(t *testing.T) {
	if _, err := Decode([]byte("not a mask container")); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrBadSignature) {
		t.Errorf("nil input err = %v, want ErrBadSignature", err)
	}
}

func TestDecodeCorruptChunk(t *testing.T) {
	m := New(8, 8, geometry.Bounds{MaxX: 1, MaxY: 1})
	enc := Encode(m)

	// Flip a byte inside the header payload so its CRC fails.
	bad := append([]byte(nil), enc...)
	bad[len(signature)+8+4] ^= 0xFF
	if _, err := Decode(bad); !errors.Is(err, ErrBadChunk) {
		t.Errorf("err = %v, want ErrBadChunk", err)
	}

	// Truncated stream.
	if _, err := Decode(enc[:len(enc)-6]); !errors.Is(err, ErrBadChunk) {
		t.Errorf("truncated err = %v, want ErrBadChunk", err)
	}
}

func TestDecodeRejectsCompressedDeflate(t *testing.T) {
	m := New(8, 8, geometry.Bounds{MaxX: 1, MaxY: 1})
	for i := range m.Data {
		m.Data[i] = 200
	}
	// Re-encode through the stdlib PNG encoder: same image, but real
	// (non-stored) deflate blocks, which this codec must refuse.
	img, err := png.Decode(bytes.NewReader(Encode(m)))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(buf.Bytes()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestDecodeStoredLengthCheck(t *testing.T) {
	m := New(8, 8, geometry.Bounds{MaxX: 1, MaxY: 1})
	enc := Encode(m)

	// Corrupt the ones-complement length inside the image-data stream and
	// refresh the chunk CRC so only the stream check can catch it.
	idat := bytes.Index(enc, []byte("IDAT"))
	if idat < 0 {
		t.Fatal("no image-data chunk")
	}
	bad := append([]byte(nil), enc...)
	bad[idat+4+2+3] ^= 0xFF // NLEN low byte of first stored block
	rechecksum(bad, idat)
	if _, err := Decode(bad); !errors.Is(err, ErrBadStream) {
		t.Errorf("err = %v, want ErrBadStream", err)
	}
}

func TestDecodeAdlerMismatch(t *testing.T) {
	m := New(8, 8, geometry.Bounds{MaxX: 1, MaxY: 1})
	enc := Encode(m)
	idat := bytes.Index(enc, []byte("IDAT"))
	if idat < 0 {
		t.Fatal("no image-data chunk")
	}
	// Flip a pixel byte, keep framing and chunk CRC valid: only the
	// Adler32 trailer can reject this.
	bad := append([]byte(nil), enc...)
	bad[idat+4+2+5+10] ^= 0xFF
	rechecksum(bad, idat)
	if _, err := Decode(bad); !errors.Is(err, ErrBadStream) {
		t.Errorf("err = %v, want ErrBadStream", err)
	}
}

func TestDecodeRejectsNonZeroFilter(t *testing.T) {
	m := New(4, 4, geometry.Bounds{MaxX: 1, MaxY: 1})
	enc := Encode(m)
	idat := bytes.Index(enc, []byte("IDAT"))
	bad := append([]byte(nil), enc...)
	// First row's filter byte sits right after the 2-byte zlib header and
	// 5-byte stored-block header. Fixing the Adler as well so the filter
	// check is what fires.
	bad[idat+4+2+5] = 1
	readler(bad, idat, 4, 4)
	rechecksum(bad, idat)
	if _, err := Decode(bad); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	m := New(12, 12, geometry.Bounds{MinX: 0.25, MinY: 0.25, MaxX: 0.75, MaxY: 0.75})
	m.Set(6, 6, 255)
	url := EncodeDataURL(m)
	if !bytes.HasPrefix([]byte(url), []byte("data:image/png;base64,")) {
		t.Fatalf("unexpected prefix: %.40s", url)
	}
	got, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if !bytes.Equal(got.Data, m.Data) || got.Bounds != m.Bounds {
		t.Errorf("data URL round trip lost data")
	}
	if _, err := DecodeDataURL("data:text/plain,hello"); err == nil {
		t.Errorf("accepted non-base64 data URL")
	}
}

// rechecksum recomputes the CRC of the chunk whose type tag starts at
// tagOff, so tests can corrupt payload bytes without tripping the chunk
// CRC first.
func rechecksum(data []byte, tagOff int) {
	n := int(uint32(data[tagOff-4])<<24 | uint32(data[tagOff-3])<<16 | uint32(data[tagOff-2])<<8 | uint32(data[tagOff-1]))
	body := data[tagOff : tagOff+4+n]
	crc := crc32.ChecksumIEEE(body)
	data[tagOff+4+n] = byte(crc >> 24)
	data[tagOff+4+n+1] = byte(crc >> 16)
	data[tagOff+4+n+2] = byte(crc >> 8)
	data[tagOff+4+n+3] = byte(crc)
}

// readler recomputes the Adler32 trailer of the image-data stream after a
// test mutates raw scanline bytes.
func readler(data []byte, tagOff, width, height int) {
	raw := make([]byte, 0, height*(width+1))
	off := tagOff + 4 + 2 // past tag and zlib header
	for off < len(data) {
		n := int(data[off+1]) | int(data[off+2])<<8
		final := data[off]&1 == 1
		off += 5
		raw = append(raw, data[off:off+n]...)
		off += n
		if final {
			break
		}
	}
	sum := adler32.Checksum(raw)
	data[off] = byte(sum >> 24)
	data[off+1] = byte(sum >> 16)
	data[off+2] = byte(sum >> 8)
	data[off+3] = byte(sum)
}
