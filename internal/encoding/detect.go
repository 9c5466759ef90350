package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	CharsetUTF8        = "UTF-8"
	CharsetUTF16LE     = "UTF-16LE"
	CharsetUTF16BE     = "UTF-16BE"
	CharsetWindows1252 = "windows-1252"
	CharsetISO88599    = "ISO-8859-9"
	CharsetISO885915   = "ISO-8859-15"
)

const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decoders maps chardet's charset names onto x/text decoders. Anything not
// listed falls back to Windows-1252, which is what spreadsheet exports on
// Windows produce.
var decoders = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
	"ISO-8859-15":  charmap.ISO8859_15,
}

var canonical = map[string]string{
	"ISO-8859-1":   CharsetWindows1252,
	"windows-1252": CharsetWindows1252,
	"ISO-8859-9":   CharsetISO88599,
	"ISO-8859-15":  CharsetISO885915,
}

// Detection describes what NewUTF8Reader found in the input.
type Detection struct {
	Charset string
	BOM     bool
}

// NewUTF8Reader sniffs the first few KB of r and returns a reader that yields
// UTF-8. Order: BOM, valid UTF-8, chardet heuristics, Windows-1252.
func NewUTF8Reader(r io.Reader) (io.Reader, Detection, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, Detection{}, fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, Detection{Charset: CharsetUTF8, BOM: true}, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, dec), Detection{Charset: CharsetUTF16LE, BOM: true}, nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(br, dec), Detection{Charset: CharsetUTF16BE, BOM: true}, nil
	}

	if validUTF8Prefix(buf) {
		return br, Detection{Charset: CharsetUTF8}, nil
	}

	charset := CharsetWindows1252
	dec := encoding.Encoding(charmap.Windows1252)

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		if result.Charset == CharsetUTF8 {
			return br, Detection{Charset: CharsetUTF8}, nil
		}

		if e, ok := decoders[result.Charset]; ok {
			dec = e
			charset = canonical[result.Charset]
		}
	}

	return transform.NewReader(br, dec.NewDecoder()), Detection{Charset: charset}, nil
}

// validUTF8Prefix accepts a buffer whose only invalid bytes are a rune cut
// off at the sniff boundary.
func validUTF8Prefix(buf []byte) bool {
	if utf8.Valid(buf) {
		return true
	}

	if len(buf) < sniffSize {
		return false
	}

	for cut := 1; cut < utf8.UTFMax && cut < len(buf); cut++ {
		if utf8.Valid(buf[:len(buf)-cut]) {
			return true
		}
	}

	return false
}
