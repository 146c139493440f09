package core

import (
	"strings"
	"unicode/utf8"
)

// streamDecoder converts raw byte chunks into text, carrying a partial
// multi-byte sequence across calls. Chunk boundaries are not guaranteed to
// align with character boundaries, so each chunk is decoded against the
// pending tail of the previous one. Malformed bytes become U+FFFD; the
// stream never terminates on a decode error.
type streamDecoder struct {
	pending []byte
}

// Decode appends chunk to any pending partial sequence and returns the
// longest decodable prefix as text. A trailing partial sequence is held
// back until the next call.
func (d *streamDecoder) Decode(chunk []byte) string {
	if len(chunk) == 0 {
		return ""
	}
	input := chunk
	if len(d.pending) > 0 {
		input = append(d.pending, chunk...)
		d.pending = nil
	}
	var b strings.Builder
	b.Grow(len(input))
	for len(input) > 0 {
		r, size := utf8.DecodeRune(input)
		if r == utf8.RuneError && size <= 1 {
			if incompleteTail(input) {
				d.pending = append([]byte(nil), input...)
				break
			}
			b.WriteRune(utf8.RuneError)
			input = input[1:]
			continue
		}
		b.Write(input[:size])
		input = input[size:]
	}
	return b.String()
}

// incompleteTail reports whether b is a proper prefix of a valid multi-byte
// encoding, meaning the rest of the character may arrive in the next chunk.
func incompleteTail(b []byte) bool {
	if len(b) == 0 || len(b) >= utf8.UTFMax {
		return false
	}
	var want int
	switch c := b[0]; {
	case c&0xE0 == 0xC0:
		want = 2
	case c&0xF0 == 0xE0:
		want = 3
	case c&0xF8 == 0xF0:
		want = 4
	default:
		return false
	}
	if len(b) >= want {
		return false
	}
	for _, c := range b[1:] {
		if c&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
