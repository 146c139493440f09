package tui

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"
)

type keyKind int

const (
	keyRune keyKind = iota
	keyEnter
	keyEscape
	keyUp
	keyDown
	keyLeft
	keyRight
	keyBackspace
	keyTab
	keyCtrlC
	keyCtrlQ
	keyOther
)

// key is one decoded keypress. raw always holds the exact bytes the client
// sent, so terminal mode can forward them untouched.
type key struct {
	kind keyKind
	r    rune
	raw  []byte
}

// readKeys decodes keypresses from r until read error and sends them on out.
// A lone ESC (no buffered continuation) is reported as keyEscape so the
// caller can run its double-press handling; ESC followed by more bytes is
// parsed as a CSI/SS3/Alt sequence.
func readKeys(r io.Reader, out chan<- key) {
	defer close(out)
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		switch b {
		case 0x1b:
			if br.Buffered() == 0 {
				out <- key{kind: keyEscape, raw: []byte{0x1b}}
				continue
			}
			readEscape(br, out)
		case '\r', '\n':
			out <- key{kind: keyEnter, raw: []byte{b}}
		case 0x7f, 0x08:
			out <- key{kind: keyBackspace, raw: []byte{b}}
		case 0x03:
			out <- key{kind: keyCtrlC, raw: []byte{b}}
		case 0x11:
			out <- key{kind: keyCtrlQ, raw: []byte{b}}
		case 0x09:
			out <- key{kind: keyTab, raw: []byte{b}}
		default:
			if b < 0x20 {
				out <- key{kind: keyOther, raw: []byte{b}}
				continue
			}
			if b < utf8.RuneSelf {
				out <- key{kind: keyRune, r: rune(b), raw: []byte{b}}
				continue
			}
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			raw := make([]byte, utf8.RuneLen(rn))
			utf8.EncodeRune(raw, rn)
			out <- key{kind: keyRune, r: rn, raw: raw}
		}
	}
}

func readEscape(br *bufio.Reader, out chan<- key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, out)
	case 'O':
		readSS3(br, out)
	default:
		out <- key{kind: keyOther, raw: []byte{0x1b, b}}
	}
}

func readCSI(br *bufio.Reader, out chan<- key) {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 16 {
			break
		}
	}
	raw := append([]byte{0x1b, '['}, seq...)
	switch string(seq) {
	case "A":
		out <- key{kind: keyUp, raw: raw}
	case "B":
		out <- key{kind: keyDown, raw: raw}
	case "C":
		out <- key{kind: keyRight, raw: raw}
	case "D":
		out <- key{kind: keyLeft, raw: raw}
	default:
		out <- key{kind: keyOther, raw: raw}
	}
}

func readSS3(br *bufio.Reader, out chan<- key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	raw := []byte{0x1b, 'O', b}
	switch b {
	case 'A':
		out <- key{kind: keyUp, raw: raw}
	case 'B':
		out <- key{kind: keyDown, raw: raw}
	case 'C':
		out <- key{kind: keyRight, raw: raw}
	case 'D':
		out <- key{kind: keyLeft, raw: raw}
	default:
		out <- key{kind: keyOther, raw: raw}
	}
}
