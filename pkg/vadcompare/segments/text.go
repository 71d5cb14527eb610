package segments

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts raw label bytes to a string. VAD logs captured on Korean
// Windows hosts arrive as CP949/EUC-KR; anything that is neither UTF-8 nor
// decodes cleanly as EUC-KR is read as Latin-1, which never fails.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	if out, err := korean.EUCKR.NewDecoder().Bytes(data); err == nil && !strings.ContainsRune(string(out), utf8.RuneError) {
		return string(out)
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, nil))
	}
	return string(out)
}
