package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/encoding"
)

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	input := "description;quantity;unit_price\nMão de obra;2;45,00\nTubo cobre 15mm;3;4,20\n"

	r, det, err := encoding.NewUTF8Reader(bytes.NewReader([]byte(input)))
	require.NoError(t, err)
	assert.Equal(t, encoding.CharsetUTF8, det.Charset)
	assert.False(t, det.BOM)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8Reader_Windows1252(t *testing.T) {
	// "Mão;2\n" with ã = 0xE3
	latin1 := []byte{'M', 0xE3, 'o', ';', '2', '\n'}

	r, det, err := encoding.NewUTF8Reader(bytes.NewReader(latin1))
	require.NoError(t, err)
	assert.NotEqual(t, encoding.CharsetUTF8, det.Charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Mão;2\n", string(got))
}

func TestNewUTF8Reader_UTF8BOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Válvula;1\n")...)

	r, det, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.Detection{Charset: encoding.CharsetUTF8, BOM: true}, det)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Válvula;1\n", string(got))
}

func TestNewUTF8Reader_UTF16LE(t *testing.T) {
	// BOM followed by "ab" in UTF-16LE.
	input := []byte{0xFF, 0xFE, 'a', 0x00, 'b', 0x00}

	r, det, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.CharsetUTF16LE, det.Charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestNewUTF8Reader_RuneSplitAtSniffBoundary(t *testing.T) {
	// 4095 ASCII bytes then a two-byte rune straddling the 4096 boundary.
	input := strings.Repeat("a", 4095) + "ã"

	r, det, err := encoding.NewUTF8Reader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.CharsetUTF8, det.Charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}
