package encoding

import (
	"testing"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/stretchr/testify/assert"
)

var gbkChinese = []byte{0xD6, 0xD0, 0xCE, 0xC4} // "中文" in GBK

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want domain.Encoding
	}{
		{"empty", nil, domain.EncodingUTF8},
		{"ascii", []byte("2024-01-01 INFO started\n"), domain.EncodingUTF8},
		{"utf8 multibyte", []byte("ошибка: 中文\n"), domain.EncodingUTF8},
		{"bom with invalid tail", append([]byte{0xEF, 0xBB, 0xBF, 'a'}, 0xFF, 0xFE), domain.EncodingUTF8},
		{"gbk", append([]byte("msg="), gbkChinese...), domain.EncodingGBK},
		{"latin1", []byte("caf\xe9\n"), domain.EncodingLatin1},
		{"truncated utf8 pair reads as gbk", []byte("ok \xe4\xb8"), domain.EncodingGBK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data))
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	data := append([]byte("line one\n"), gbkChinese...)
	first := Detect(data)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Detect(data))
	}
}

func TestSniffer_MatchesDetectForAnyChunking(t *testing.T) {
	samples := [][]byte{
		[]byte("plain ascii\nsecond line\n"),
		[]byte("ошибка подключения 中文 😀\n"),
		append([]byte{0xEF, 0xBB, 0xBF}, []byte("bom\n")...),
		append([]byte("gbk "), gbkChinese...),
		[]byte("caf\xe9\n"),
		[]byte("bad \xc3\x28 seq"),
	}

	for _, sample := range samples {
		want := Detect(sample)
		for chunk := 1; chunk <= len(sample); chunk++ {
			var s Sniffer
			for off := 0; off < len(sample); off += chunk {
				end := off + chunk
				if end > len(sample) {
					end = len(sample)
				}
				s.Write(sample[off:end])
			}
			assert.Equal(t, want, s.Result(), "sample %q chunk %d", sample, chunk)
		}
	}
}

func TestSniffer_PairAcrossWrites(t *testing.T) {
	var s Sniffer
	s.Write([]byte{'x', 0xD6})
	s.Write([]byte{0xD0, 'y'})
	assert.Equal(t, domain.EncodingGBK, s.Result())
}
