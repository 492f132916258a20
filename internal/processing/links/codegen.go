package links

import (
	"crypto/rand"
	"errors"
	"io"
)

const (
	Alphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultCodeLength = 6
	MinCodeLength     = 6
	MaxCodeLength     = 8

	// largest multiple of len(Alphabet) that fits in a byte
	acceptBelow = 248
)

var ErrBatchExhausted = errors.New("could not produce enough distinct codes")

// CryptoGenerator draws each position independently and uniformly from
// Alphabet. Bytes at or above acceptBelow are discarded to avoid modulo bias.
type CryptoGenerator struct {
	reader io.Reader
}

func NewCryptoGenerator() *CryptoGenerator {
	return &CryptoGenerator{reader: rand.Reader}
}

func (g *CryptoGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(out) < length {
		if _, err := io.ReadFull(g.reader, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= acceptBelow {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// GenerateBatch returns count distinct codes, redrawing duplicates.
func (g *CryptoGenerator) GenerateBatch(count, length int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}

	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	maxDraws := count * 100
	for draws := 0; len(out) < count; draws++ {
		if draws >= maxDraws {
			return nil, ErrBatchExhausted
		}
		code, err := g.Generate(length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out, nil
}
