package common

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// LookupEncoding resolves a code page name such as "windows-1252" or "latin1".
// An empty name or any UTF-8 alias yields nil, meaning no decoding is needed.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, Wrap(ErrConfiguration, "", "unknown text encoding "+name, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}
