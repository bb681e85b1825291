// internal/rules/decode.go
package rules

import (
	"fmt"
	"io"
	"strings"

	"github.com/solatis/linewarden/internal/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

/*
 * Character decoding of the input stream.
 *
 * Charsets are resolved by name through the IANA registry first and the
 * WHATWG (HTML) index second, so both "ISO-8859-1" and "latin1" work. UTF-8
 * is special cased to a BOM-aware decoder: a leading byte order mark is
 * dropped instead of ending up in the first field of the first line.
 *
 * Invalid byte sequences are replaced with U+FFFD by the x/text decoders and
 * surface as ordinary (probably failing) field values, never as read errors.
 */

// LookupCharset resolves a charset name. Empty means utf-8.
func LookupCharset(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "utf-8" || n == "utf8" {
		return unicode.UTF8BOM, nil
	}
	if enc, err := ianaindex.IANA.Encoding(n); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(n); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownCharset, name)
}

// decodingReader wraps r so that it yields UTF-8.
func decodingReader(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil {
		enc = unicode.UTF8BOM
	}
	return transform.NewReader(r, enc.NewDecoder())
}
