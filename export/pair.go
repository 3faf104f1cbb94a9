package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/glyphcast/glyphcast"
)

// pairChunkID is the FourCC of the custom AVI chunk carrying the asset
// pair identifier. Readers that do not know the chunk skip it.
var pairChunkID = [4]byte{'g', 'c', 'i', 'd'}

// appendPairChunk appends a pair identifier chunk to a finished AVI file
// and patches the top-level RIFF size so the container stays well formed.
func appendPairChunk(path, id string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	defer f.Close()

	var hdr [8]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	if !bytes.Equal(hdr[:4], []byte("RIFF")) {
		return &glyphcast.WriterError{Op: "finalize", Err: fmt.Errorf("%s is not a RIFF file", path)}
	}

	info, err := f.Stat()
	if err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}

	chunk := make([]byte, 0, 8+len(id)+1)
	chunk = append(chunk, pairChunkID[:]...)
	chunk = binary.LittleEndian.AppendUint32(chunk, uint32(len(id)))
	chunk = append(chunk, id...)
	if len(id)%2 != 0 {
		// RIFF chunks are word aligned.
		chunk = append(chunk, 0)
	}

	if _, err := f.WriteAt(chunk, info.Size()); err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}

	riffSize := uint32(info.Size()) + uint32(len(chunk)) - 8
	binary.LittleEndian.PutUint32(hdr[4:], riffSize)
	if _, err := f.WriteAt(hdr[4:], 4); err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	return nil
}

// VideoPairID returns the pair identifier embedded in the video half of a
// live asset written by LiveExporter.
func VideoPairID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("RIFF")) {
		return "", fmt.Errorf("%s is not a RIFF file", path)
	}
	for off := 12; off+8 <= len(data); {
		id := data[off : off+4]
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if bytes.Equal(id, pairChunkID[:]) {
			if off+8+size > len(data) {
				return "", fmt.Errorf("truncated pair chunk in %s", path)
			}
			return string(data[off+8 : off+8+size]), nil
		}
		off += 8 + size + size%2
	}
	return "", fmt.Errorf("no pair identifier in %s", path)
}

// StillPairID returns the pair identifier embedded in the still half of a
// live asset written by LiveExporter.
func StillPairID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	id := jpegComment(data)
	if id == "" {
		return "", fmt.Errorf("no pair identifier in %s", path)
	}
	return id, nil
}

// insertJPEGComment inserts a COM segment carrying comment into a JPEG
// byte stream, after any leading APPn segments so JFIF and EXIF headers
// keep their mandated position.
func insertJPEGComment(jpg []byte, comment string) ([]byte, error) {
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		return nil, fmt.Errorf("not a JPEG stream")
	}
	if len(comment)+2 > 0xFFFF {
		return nil, fmt.Errorf("comment too long")
	}
	i := 2
	for i+4 <= len(jpg) && jpg[i] == 0xFF && jpg[i+1] >= 0xE0 && jpg[i+1] <= 0xEF {
		i += 2 + int(binary.BigEndian.Uint16(jpg[i+2:i+4]))
	}
	out := make([]byte, 0, len(jpg)+4+len(comment))
	out = append(out, jpg[:i]...)
	out = append(out, 0xFF, 0xFE)
	out = binary.BigEndian.AppendUint16(out, uint16(len(comment)+2))
	out = append(out, comment...)
	out = append(out, jpg[i:]...)
	return out, nil
}

// jpegComment returns the payload of the first COM segment in a JPEG
// byte stream, or "" when there is none.
func jpegComment(jpg []byte) string {
	i := 2
	for i+4 <= len(jpg) {
		if jpg[i] != 0xFF {
			return ""
		}
		marker := jpg[i+1]
		if marker == 0xD8 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		size := int(binary.BigEndian.Uint16(jpg[i+2 : i+4]))
		if marker == 0xFE {
			if i+2+size > len(jpg) {
				return ""
			}
			return string(jpg[i+4 : i+2+size])
		}
		if marker == 0xDA {
			// Entropy-coded data follows, no COM segment before it.
			return ""
		}
		i += 2 + size
	}
	return ""
}
