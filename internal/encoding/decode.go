package encoding

import (
	"strings"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Decode converts raw line bytes to a string according to enc.
// Invalid input never fails: undecodable bytes become U+FFFD.
func Decode(raw []byte, enc domain.Encoding) string {
	switch enc {
	case domain.EncodingGBK:
		out, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
		if err != nil {
			return lossyUTF8(raw)
		}
		return string(out)
	case domain.EncodingLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return lossyUTF8(raw)
		}
		return string(out)
	default:
		return lossyUTF8(raw)
	}
}

// TrimTerminator strips a single trailing "\n" and the "\r" before it, if present
func TrimTerminator(raw []byte) []byte {
	n := len(raw)
	if n > 0 && raw[n-1] == '\n' {
		n--
		if n > 0 && raw[n-1] == '\r' {
			n--
		}
	}
	return raw[:n]
}

func lossyUTF8(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}
