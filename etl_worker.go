/*
    AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import (
	"bytes"
	"compress/gzip"
	"io"
	"strconv"

	kgzip "github.com/klauspost/compress/gzip"
)

// workerState names the one-shot lifecycle of a single ETL worker:
// Awaiting-Accept -> Handshaked-Already -> Reading-Headers ->
// Streaming-Body -> Writing-Response -> Closed. serveImport/serveExport
// record it on the worker as they go; nothing branches on it.
type workerState int

const (
	workerAwaitingAccept workerState = iota
	workerHandshakedAlready
	workerReadingHeaders
	workerStreamingBody
	workerWritingResponse
	workerClosed
)

// etlWorker drives one one-shot HTTP/1.1 exchange with the cluster over a
// handshaken socket. It is never reused across jobs or requests.
type etlWorker struct {
	conn       etlSocket
	addr       internalAddr
	compressed bool
	log        Logger
	state      workerState
}

func newEtlWorker(conn etlSocket, addr internalAddr, compressed bool, log Logger) *etlWorker {
	return &etlWorker{conn: conn, addr: addr, compressed: compressed, log: log, state: workerHandshakedAlready}
}

// serveImport drives the IMPORT-job worker role: the cluster GETs the
// "file" and this worker streams src's bytes out as the chunked HTTP
// response body, gzip-encoding them first when compression is enabled.
// It reads request headers off the wire (and discards them — the request
// line/headers are not parsed into a rich structure, only consumed) before
// writing the response.
func (w *etlWorker) serveImport(src io.Reader) error {
	w.state = workerReadingHeaders
	if err := w.consumeRequestHeaders(); err != nil {
		return err
	}

	w.state = workerStreamingBody
	cw := newChunkedWriter(w.conn)

	var bodyWriter io.Writer = cw
	var gz *kgzip.Writer
	if w.compressed {
		gz = kgzip.NewWriter(cw)
		bodyWriter = gz
	}

	headers := []string{
		"HTTP/1.1 200 OK",
		"Content-Type: application/octet-stream",
		"Content-Disposition: attachment; filename=data.csv",
		"Transfer-Encoding: chunked",
	}
	if w.compressed {
		headers = append(headers, "Content-Encoding: gzip")
	}
	headers = append(headers, "Connection: close")
	if err := w.sendHeaders(headers); err != nil {
		return err
	}

	if _, err := io.Copy(bodyWriter, src); err != nil {
		return &IoError{Op: "ETL worker write body", Err: err}
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return &IoError{Op: "ETL worker close gzip writer", Err: err}
		}
	}
	if err := cw.Close(); err != nil {
		return err
	}

	w.state = workerClosed
	return nil
}

// serveExport drives the EXPORT-job worker role: the cluster PUTs the
// table's exported rows as a chunked request body, which this worker
// decodes (gunzipping when enabled) and copies into dst. After the body is
// fully consumed it replies 200 OK with zero content length, matching the
// teacher's proxy.Read response phase.
func (w *etlWorker) serveExport(dst io.Writer) (int64, error) {
	w.state = workerReadingHeaders
	if err := w.consumeRequestHeaders(); err != nil {
		return 0, err
	}
	if err := w.sendHeaders([]string{
		"HTTP/1.1 100 Continue",
		"Content-Length: 0",
	}); err != nil {
		return 0, err
	}

	w.state = workerStreamingBody
	cr := newChunkedReader(w.conn)

	var bodyReader io.Reader = cr
	if w.compressed {
		gz, err := gzip.NewReader(cr)
		if err != nil {
			return 0, &IoError{Op: "ETL worker open gzip reader", Err: err}
		}
		defer gz.Close()
		bodyReader = gz
	}

	n, err := io.Copy(dst, bodyReader)
	if err != nil {
		return n, &IoError{Op: "ETL worker read body", Err: err}
	}

	w.state = workerWritingResponse
	if err := w.sendHeaders([]string{
		"HTTP/1.1 200 OK",
		"Content-Length: 0",
	}); err != nil {
		return n, err
	}

	w.state = workerClosed
	return n, nil
}

func (w *etlWorker) close() error {
	w.state = workerClosed
	return w.conn.Close()
}

/*--- request-line/header consumption ---*/

// consumeRequestHeaders reads until the sentinel \r\n\r\n via a sliding
// 4-byte window. The request line and headers are not parsed into a rich
// structure, only verified present.
func (w *etlWorker) consumeRequestHeaders() error {
	var window [4]byte
	filled := 0
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(w.conn, one); err != nil {
			return &IoError{Op: "ETL worker read request headers", Err: err}
		}
		if filled < 4 {
			window[filled] = one[0]
			filled++
		} else {
			copy(window[0:3], window[1:4])
			window[3] = one[0]
		}
		if filled == 4 && window == ([4]byte{'\r', '\n', '\r', '\n'}) {
			return nil
		}
	}
}

func (w *etlWorker) sendHeaders(headers []string) error {
	var buf bytes.Buffer
	for _, h := range headers {
		buf.WriteString(h)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	if _, err := w.conn.Write(buf.Bytes()); err != nil {
		return &IoError{Op: "ETL worker write headers", Err: err}
	}
	return nil
}

/*--- chunked transfer encoding ---*/

// chunkedWriter encodes each Write call as exactly one HTTP chunked-transfer
// chunk: hex length, CRLF, bytes, CRLF. Close emits the terminating
// 0\r\n\r\n.
type chunkedWriter struct {
	w      io.Writer
	closed bool
}

func newChunkedWriter(w io.Writer) *chunkedWriter {
	return &chunkedWriter{w: w}
}

func (cw *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size := strconv.FormatInt(int64(len(p)), 16)
	if _, err := io.WriteString(cw.w, size+"\r\n"); err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	if err != nil {
		return n, err
	}
	if n != len(p) {
		return n, &ProtocolError{Msg: "short write to ETL worker socket", Err: ErrWriteZero}
	}
	if _, err := io.WriteString(cw.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

func (cw *chunkedWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	_, err := io.WriteString(cw.w, "0\r\n\r\n")
	if err != nil {
		return &IoError{Op: "ETL worker write chunk terminator", Err: err}
	}
	return nil
}

// chunkedReader hand-parses HTTP chunked transfer-encoding off r: hex
// length accumulated until CR, LF required, ErrChunkSizeOverflow on
// overflow of 64 bits, InvalidChunkSizeByteError on a non-hex byte,
// InvalidByteError on any other expected-byte mismatch. A zero-length
// chunk terminates the body (an optional trailer is consumed but not
// interpreted).
type chunkedReader struct {
	r    io.Reader
	rem  int64 // bytes remaining in the current chunk
	done bool
}

func newChunkedReader(r io.Reader) *chunkedReader {
	return &chunkedReader{r: r}
}

func (cr *chunkedReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}
	if cr.rem == 0 {
		size, err := cr.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := cr.consumeTrailer(); err != nil {
				return 0, err
			}
			cr.done = true
			return 0, io.EOF
		}
		cr.rem = size
	}

	max := int64(len(p))
	if max > cr.rem {
		max = cr.rem
	}
	n, err := cr.r.Read(p[:max])
	cr.rem -= int64(n)
	if err != nil {
		return n, &IoError{Op: "ETL worker read chunk body", Err: err}
	}
	if cr.rem == 0 {
		if err := cr.expectCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// readChunkSize accumulates hex digits until CR, then requires LF.
func (cr *chunkedReader) readChunkSize() (int64, error) {
	var size uint64
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(cr.r, one); err != nil {
			return 0, &IoError{Op: "ETL worker read chunk size", Err: err}
		}
		b := one[0]
		if b == '\r' {
			break
		}
		v, ok := hexVal(b)
		if !ok {
			return 0, &ProtocolError{Msg: "invalid chunk size byte", Err: &InvalidChunkSizeByteError{Byte: b}}
		}
		if size>>60 != 0 {
			return 0, &ProtocolError{Msg: "chunk size overflow", Err: ErrChunkSizeOverflow}
		}
		size = size*16 + uint64(v)
	}
	if err := cr.expectByte('\n'); err != nil {
		return 0, err
	}
	return int64(size), nil
}

func (cr *chunkedReader) expectCRLF() error {
	if err := cr.expectByte('\r'); err != nil {
		return err
	}
	return cr.expectByte('\n')
}

func (cr *chunkedReader) expectByte(want byte) error {
	one := make([]byte, 1)
	if _, err := io.ReadFull(cr.r, one); err != nil {
		return &IoError{Op: "ETL worker read chunk framing", Err: err}
	}
	if one[0] != want {
		return &ProtocolError{Msg: "unexpected byte in chunk framing", Err: &InvalidByteError{Expected: want, Found: one[0]}}
	}
	return nil
}

// consumeTrailer reads an optional trailer section up to the terminating
// blank line; trailer header values are never interpreted.
func (cr *chunkedReader) consumeTrailer() error {
	lineLen := 0
	var prev byte
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(cr.r, one); err != nil {
			return &IoError{Op: "ETL worker read chunk trailer", Err: err}
		}
		b := one[0]
		if prev == '\r' && b == '\n' {
			if lineLen == 1 {
				return nil
			}
			lineLen = 0
		} else {
			lineLen++
		}
		prev = b
	}
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}
