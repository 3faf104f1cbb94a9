package export

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// writeTestRIFF writes a minimal RIFF/AVI skeleton: the RIFF header plus
// one opaque chunk.
func writeTestRIFF(t *testing.T, payload []byte) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(payload)))
	buf.WriteString("AVI ")
	buf.WriteString("junk")
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)

	path := filepath.Join(t.TempDir(), "clip.avi")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAppendPairChunkRoundTrip(t *testing.T) {
	path := writeTestRIFF(t, []byte("0123456789"))

	const id = "f6b2c9e4-1d07-4a38-9a51-8c2f30d1ab64"
	if err := appendPairChunk(path, id); err != nil {
		t.Fatalf("appendPairChunk() error = %v", err)
	}

	got, err := VideoPairID(path)
	if err != nil {
		t.Fatalf("VideoPairID() error = %v", err)
	}
	if got != id {
		t.Errorf("VideoPairID() = %q, want %q", got, id)
	}
}

func TestVideoPairIDMissing(t *testing.T) {
	path := writeTestRIFF(t, []byte("0123456789"))
	if _, err := VideoPairID(path); err == nil {
		t.Error("VideoPairID() found an identifier in an untagged file")
	}
}

func TestAppendPairChunkPatchesRIFFSize(t *testing.T) {
	path := writeTestRIFF(t, []byte("abcd"))

	if err := appendPairChunk(path, "pair-01"); err != nil {
		t.Fatalf("appendPairChunk() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data)%2 != 0 {
		t.Errorf("file length %d is odd, chunk was not padded", len(data))
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if want := uint32(len(data) - 8); riffSize != want {
		t.Errorf("RIFF size = %d, want %d", riffSize, want)
	}
}

func TestAppendPairChunkRejectsNonRIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.avi")
	if err := os.WriteFile(path, []byte("not a riff file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := appendPairChunk(path, "id"); err == nil {
		t.Error("appendPairChunk() accepted a non-RIFF file")
	}
}

func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.SetNRGBA(3, 3, color.NRGBA{R: 0xFF, A: 0xFF})

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestInsertJPEGCommentRoundTrip(t *testing.T) {
	jpg := encodeTestJPEG(t)

	const id = "4cb0a7d2-55e3-47f1-b1c8-0d9ee02a7c15"
	tagged, err := insertJPEGComment(jpg, id)
	if err != nil {
		t.Fatalf("insertJPEGComment() error = %v", err)
	}

	// Go's encoder writes no APPn segments, so the COM segment lands
	// directly after SOI.
	if tagged[2] != 0xFF || tagged[3] != 0xFE {
		t.Errorf("bytes after SOI = %02x %02x, want COM marker ff fe", tagged[2], tagged[3])
	}
	if got := jpegComment(tagged); got != id {
		t.Errorf("jpegComment() = %q, want %q", got, id)
	}

	// The image must still decode.
	if _, err := jpeg.Decode(bytes.NewReader(tagged)); err != nil {
		t.Errorf("tagged JPEG no longer decodes: %v", err)
	}
}

func TestInsertJPEGCommentAfterAPP0(t *testing.T) {
	// Go's encoder emits no APP0, so synthesize a JFIF header after SOI
	// and check the comment lands behind it, not between SOI and APP0.
	jpg := encodeTestJPEG(t)
	app0 := []byte{
		0xFF, 0xE0, 0x00, 0x10,
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	}
	withJFIF := append(append(append([]byte{}, jpg[:2]...), app0...), jpg[2:]...)

	const id = "pair-after-app0"
	tagged, err := insertJPEGComment(withJFIF, id)
	if err != nil {
		t.Fatalf("insertJPEGComment() error = %v", err)
	}

	if tagged[2] != 0xFF || tagged[3] != 0xE0 {
		t.Errorf("bytes after SOI = %02x %02x, want APP0 marker ff e0", tagged[2], tagged[3])
	}
	comOff := 2 + len(app0)
	if tagged[comOff] != 0xFF || tagged[comOff+1] != 0xFE {
		t.Errorf("bytes after APP0 = %02x %02x, want COM marker ff fe", tagged[comOff], tagged[comOff+1])
	}
	if got := jpegComment(tagged); got != id {
		t.Errorf("jpegComment() = %q, want %q", got, id)
	}
}

func TestStillPairID(t *testing.T) {
	const id = "9d3f0c11-7a42-4e6b-8a77-d25c4b9e1f02"
	tagged, err := insertJPEGComment(encodeTestJPEG(t), id)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "still.jpg")
	if err := os.WriteFile(path, tagged, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := StillPairID(path)
	if err != nil {
		t.Fatalf("StillPairID() error = %v", err)
	}
	if got != id {
		t.Errorf("StillPairID() = %q, want %q", got, id)
	}
}

func TestStillPairIDMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	if err := os.WriteFile(path, encodeTestJPEG(t), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := StillPairID(path); err == nil {
		t.Error("StillPairID() found an identifier in an untagged file")
	}
}

func TestInsertJPEGCommentRejectsNonJPEG(t *testing.T) {
	if _, err := insertJPEGComment([]byte("RIFF...."), "id"); err == nil {
		t.Error("insertJPEGComment() accepted a non-JPEG stream")
	}
}

func TestJPEGCommentMissing(t *testing.T) {
	if got := jpegComment(encodeTestJPEG(t)); got != "" {
		t.Errorf("jpegComment() on untagged JPEG = %q, want empty", got)
	}
}
