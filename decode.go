package webserial

import (
	"encoding/hex"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// decodeChunk returns chunk as text. A chunk that is not valid UTF-8 is
// rendered as lowercase hex pairs separated by spaces so no byte is lost,
// and isHex is set. Chunks are decoded independently; a code point split
// across two reads falls back to hex for both halves.
func decodeChunk(chunk []byte) (text string, isHex bool) {
	if len(chunk) == 0 {
		return "", false
	}
	valid, _, err := transform.Bytes(encoding.UTF8Validator, chunk)
	if err != nil {
		return hexDump(chunk), true
	}
	return string(valid), false
}

func hexDump(chunk []byte) string {
	out := make([]byte, 0, len(chunk)*3)
	for i := range chunk {
		if i > 0 {
			out = append(out, ' ')
		}
		out = hex.AppendEncode(out, chunk[i:i+1])
	}
	return string(out)
}
