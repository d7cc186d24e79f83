package sheet

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by DecodeText.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingCP1252  = "cp1252"
	EncodingLatin1  = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText converts raw bytes to a string trying UTF-8 (with or without a
// byte-order mark), then Windows-1252, then ISO-8859-1. Windows-1252 is only
// chosen when the input uses its printable 0x80-0x9F range; ISO-8859-1 maps
// every byte and therefore always succeeds.
func DecodeText(data []byte) (string, string) {
	if bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]) {
		return string(data[len(utf8BOM):]), EncodingUTF8BOM
	}
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	if usesC1Range(data) {
		if s, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			return string(s), EncodingCP1252
		}
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), EncodingUTF8
	}
	return string(s), EncodingLatin1
}

func usesC1Range(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return true
		}
	}
	return false
}
