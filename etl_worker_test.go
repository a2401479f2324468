package exasol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedReaderDecodesWikipediaExample(t *testing.T) {
	raw := "4\r\nWiki\r\n5\r\npedia\r\ne\r\n in\r\n\r\nchunks.\r\n0\r\n\r\n"
	cr := newChunkedReader(strings.NewReader(raw))
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "Wikipedia in\r\n\r\nchunks.", string(got))
}

func TestChunkedReaderOverflow(t *testing.T) {
	raw := "FFFFFFFFFFFFFFFF0\r\n"
	cr := newChunkedReader(strings.NewReader(raw))
	_, err := io.ReadAll(cr)
	assert.ErrorIs(t, err, ErrChunkSizeOverflow)
}

func TestChunkedReaderInvalidSizeByte(t *testing.T) {
	raw := "Z\r\n"
	cr := newChunkedReader(strings.NewReader(raw))
	_, err := io.ReadAll(cr)
	var byteErr *InvalidChunkSizeByteError
	assert.ErrorAs(t, err, &byteErr)
}

func TestChunkedReaderMissingCRLF(t *testing.T) {
	raw := "4\r\nWikiXX5\r\npedia\r\n0\r\n\r\n"
	cr := newChunkedReader(strings.NewReader(raw))
	_, err := io.ReadAll(cr)
	var byteErr *InvalidByteError
	assert.ErrorAs(t, err, &byteErr)
}

func TestChunkedWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cw := newChunkedWriter(&buf)
	_, err := cw.Write([]byte("Wiki"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("pedia"))
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	cr := newChunkedReader(&buf)
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "Wikipedia", string(got))
}

func TestChunkedWriterCloseIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	cw := newChunkedWriter(&buf)
	require.NoError(t, cw.Close())
	before := buf.Len()
	require.NoError(t, cw.Close())
	assert.Equal(t, before, buf.Len())
}

func TestChunkedWriterEmptyWriteIsNoop(t *testing.T) {
	var buf bytes.Buffer
	cw := newChunkedWriter(&buf)
	n, err := cw.Write(nil)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
	assert.Equal(t, 0, buf.Len())
}

func TestHexVal(t *testing.T) {
	for b, want := range map[byte]byte{'0': 0, '9': 9, 'a': 10, 'f': 15, 'A': 10, 'F': 15} {
		v, ok := hexVal(b)
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok := hexVal('g')
	assert.False(t, ok)
}
