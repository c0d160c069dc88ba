// Package encoding classifies and decodes the character encoding of log files.
//
// Detection is a best-effort heuristic. The priority order is fixed so results are
// deterministic: UTF-8 byte-order mark, strictly valid UTF-8, GBK lead/trail byte
// pairs, and finally Latin-1.
package encoding

import (
	"unicode/utf8"

	"github.com/SteelMorgan/log-viewer/internal/domain"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Detect classifies data. It never fails.
func Detect(data []byte) domain.Encoding {
	var s Sniffer
	s.Write(data)
	return s.Result()
}

// Sniffer is the streaming form of Detect.
// Multi-byte UTF-8 sequences and GBK byte pairs may straddle Write calls.
// The zero value is ready to use.
type Sniffer struct {
	head    []byte // first bytes, up to len(bom)
	invalid bool   // saw an invalid UTF-8 sequence
	carry   []byte // incomplete UTF-8 sequence from the previous write
	gbkPair bool
	prev    byte
	hasPrev bool
}

// Write feeds the next chunk. It always returns len(p), nil.
func (s *Sniffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if n := len(bom) - len(s.head); n > 0 {
		if n > len(p) {
			n = len(p)
		}
		s.head = append(s.head, p[:n]...)
	}
	s.validate(p)
	s.scanPairs(p)
	return len(p), nil
}

// Result returns the classification of everything written so far
func (s *Sniffer) Result() domain.Encoding {
	if len(s.head) == len(bom) && s.head[0] == bom[0] && s.head[1] == bom[1] && s.head[2] == bom[2] {
		return domain.EncodingUTF8
	}
	if !s.invalid && len(s.carry) == 0 {
		return domain.EncodingUTF8
	}
	if s.gbkPair {
		return domain.EncodingGBK
	}
	return domain.EncodingLatin1
}

func (s *Sniffer) validate(p []byte) {
	if s.invalid {
		return
	}

	if len(s.carry) > 0 {
		n := utf8.UTFMax - len(s.carry)
		if n > len(p) {
			n = len(p)
		}
		buf := append(append(make([]byte, 0, utf8.UTFMax), s.carry...), p[:n]...)
		if !utf8.FullRune(buf) {
			// still incomplete, p was shorter than the missing tail
			s.carry = buf
			return
		}
		r, size := utf8.DecodeRune(buf)
		if (r == utf8.RuneError && size <= 1) || size <= len(s.carry) {
			s.invalid = true
			return
		}
		p = p[size-len(s.carry):]
		s.carry = nil
	}

	cut := len(p)
	for k := 1; k < utf8.UTFMax && k <= len(p); k++ {
		if utf8.RuneStart(p[len(p)-k]) {
			if !utf8.FullRune(p[len(p)-k:]) {
				cut = len(p) - k
			}
			break
		}
	}

	if !utf8.Valid(p[:cut]) {
		s.invalid = true
		return
	}
	if cut < len(p) {
		s.carry = append([]byte(nil), p[cut:]...)
	}
}

func (s *Sniffer) scanPairs(p []byte) {
	if s.gbkPair {
		return
	}
	if s.hasPrev && isGBKPair(s.prev, p[0]) {
		s.gbkPair = true
		return
	}
	for i := 0; i+1 < len(p); i++ {
		if isGBKPair(p[i], p[i+1]) {
			s.gbkPair = true
			return
		}
	}
	s.prev = p[len(p)-1]
	s.hasPrev = true
}

func isGBKPair(lead, trail byte) bool {
	if lead < 0x81 || lead > 0xFE {
		return false
	}
	return (trail >= 0x40 && trail <= 0x7E) || (trail >= 0x80 && trail <= 0xFE)
}
