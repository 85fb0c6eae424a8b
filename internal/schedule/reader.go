package schedule

// reader.go wraps CSV input so exports from spreadsheet tools parse cleanly:
//
//   - bomSkippingReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - newTextReader decodes Windows-1252 when the head of the input is not
//     UTF-8 (Excel's "CSV" on Italian Windows)
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//
// All work on the stream, so an upload is never held twice in memory.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffSize is how much of the input decides its encoding.
const sniffSize = 64 << 10

// newTextReader returns r as UTF-8. If the first sniffSize bytes are not
// valid UTF-8 the whole input is decoded as Windows-1252; otherwise stray
// invalid bytes later on are replaced by utf8Sanitizer.
func newTextReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(newBOMSkippingReader(r), sniffSize)
	head, err := br.Peek(sniffSize)
	if err == nil {
		// The window may end inside a rune.
		head = head[:len(head)-incompleteTail(head)]
	}
	if !utf8.Valid(head) {
		return charmap.Windows1252.NewDecoder().Reader(br)
	}
	return newUTF8Sanitizer(br)
}

type bomSkippingReader struct {
	r       io.Reader
	checked bool
	head    []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: r}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, buf)
		buf = buf[:n]
		if !bytes.Equal(buf, utf8BOM) {
			b.head = buf
		}
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
	}
	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer carries incomplete multi-byte sequences between reads so
// a rune split across buffers is not mistaken for garbage.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		// Too small to hold a pending sequence plus progress.
		return s.r.Read(p)
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	data := p[:n]
	atEOF := err == io.EOF
	if !atEOF {
		if tail := incompleteTail(data); tail > 0 {
			s.pending = append(s.pending, data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}

	if write == 0 && err == nil {
		// Only a pending fragment was read; ask again rather than
		// returning (0, nil).
		return s.Read(p)
	}
	return write, err
}

// incompleteTail returns how many trailing bytes start a multi-byte rune
// that is not complete yet.
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue // continuation byte
		}
		if b < 0xC0 {
			return 0
		}
		if need := runeLen(b); i < need {
			return i
		}
		return 0
	}
	return 0
}

func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
