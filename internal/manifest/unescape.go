// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manifest

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// unescapeText removes a second layer of escaping that ad servers commonly
// leave in URLs: backslash sequences such as \u0026 or \/ and HTML entities
// such as &amp;.
func unescapeText(s string) string {
	return html.UnescapeString(unescapeBackslashes(s))
}

func unescapeBackslashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '\\', '/', '"', '\'':
			b.WriteByte(next)
		case 'u':
			if i+6 <= len(s) {
				if r, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					var buf [utf8.UTFMax]byte
					n := utf8.EncodeRune(buf[:], rune(r))
					b.Write(buf[:n])
					i += 5
					continue
				}
			}
			b.WriteByte(c)
			continue
		default:
			// Unknown escape: drop the backslash, keep the character.
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}
