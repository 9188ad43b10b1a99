package downloader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// DecodePolicy controls whether compressed artifact bodies are decoded
// before placement.
type DecodePolicy string

const (
	// DecodeAuto decodes when the response still declares a Content-Encoding,
	// i.e. the transport did not decode it already.
	DecodeAuto DecodePolicy = "auto"
	// DecodeAlways behaves like DecodeAuto and also sniffs gzip and zstd
	// magic bytes when no encoding is declared.
	DecodeAlways DecodePolicy = "always"
	// DecodeNever stores the bytes exactly as received.
	DecodeNever DecodePolicy = "never"
)

// ParseDecodePolicy validates a policy name. The empty string is DecodeAuto.
func ParseDecodePolicy(name string) (DecodePolicy, error) {
	switch DecodePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", DecodeAuto:
		return DecodeAuto, nil
	case DecodeAlways:
		return DecodeAlways, nil
	case DecodeNever:
		return DecodeNever, nil
	default:
		return "", fmt.Errorf("unknown decode policy %q (want auto, always or never)", name)
	}
}

// Encodings the engine can decode.
const (
	encodingGzip    = "gzip"
	encodingDeflate = "deflate"
	encodingZstd    = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// normalizeEncoding maps a Content-Encoding header to one of the supported
// encodings. It returns "" for identity and for unsupported codings; the
// second result is false for the latter.
func normalizeEncoding(header string) (string, bool) {
	// Multiple codings are listed in the order applied; only one is handled.
	coding := strings.ToLower(strings.TrimSpace(header))
	switch coding {
	case "", "identity":
		return "", true
	case "gzip", "x-gzip":
		return encodingGzip, true
	case "deflate":
		return encodingDeflate, true
	case "zstd":
		return encodingZstd, true
	default:
		return "", false
	}
}

// sniffEncoding recognises gzip and zstd streams by their magic bytes.
func sniffEncoding(head []byte) string {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return encodingGzip
	case bytes.HasPrefix(head, zstdMagic):
		return encodingZstd
	default:
		return ""
	}
}

// chooseEncoding decides which encoding, if any, to undo.
// head is the first bytes of the received body.
func chooseEncoding(policy DecodePolicy, contentEncoding string, uncompressed bool, head []byte) (string, error) {
	if policy == DecodeNever || uncompressed {
		return "", nil
	}

	encoding, ok := normalizeEncoding(contentEncoding)
	if !ok {
		return "", fmt.Errorf("unsupported content encoding %q", contentEncoding)
	}
	if encoding == "" && policy == DecodeAlways {
		encoding = sniffEncoding(head)
	}
	return encoding, nil
}

// newDecoder wraps r with a reader undoing encoding.
func newDecoder(encoding string, r io.Reader) (io.ReadCloser, error) {
	switch encoding {
	case encodingGzip:
		return gzip.NewReader(r)
	case encodingDeflate:
		// HTTP deflate is zlib-wrapped, though some servers send raw deflate.
		br := bufio.NewReader(r)
		if head, _ := br.Peek(2); looksLikeZlib(head) {
			return zlib.NewReader(br)
		}
		return flate.NewReader(br), nil
	case encodingZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// looksLikeZlib checks the RFC 1950 header: CM=8 and FCHECK.
func looksLikeZlib(head []byte) bool {
	if len(head) < 2 {
		return false
	}
	return head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0
}
