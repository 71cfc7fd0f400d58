package nest

import (
	"bufio"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// decompressingTransport decodes gzip and deflate bodies. The status endpoint
// needs an explicit Accept-Encoding header, which turns off the transparent
// decompression of net/http.
type decompressingTransport struct {
	next http.RoundTripper
}

func newDecompressingTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &decompressingTransport{next: next}
}

func (t *decompressingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	var body io.ReadCloser
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		body = &wrappedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}
	case "deflate":
		body = newDeflateBody(resp.Body)
	default:
		return resp, nil
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// newDeflateBody accepts both zlib-wrapped and raw deflate streams; servers
// disagree on what "deflate" means.
func newDeflateBody(rc io.ReadCloser) io.ReadCloser {
	br := bufio.NewReader(rc)
	header, _ := br.Peek(2)
	if len(header) == 2 && isZlibHeader(header[0], header[1]) {
		if zr, err := zlib.NewReader(br); err == nil {
			return &wrappedBody{Reader: zr, closers: []io.Closer{zr, rc}}
		}
	}
	fr := flate.NewReader(br)
	return &wrappedBody{Reader: fr, closers: []io.Closer{fr, rc}}
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

type wrappedBody struct {
	io.Reader
	closers []io.Closer
}

func (b *wrappedBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
