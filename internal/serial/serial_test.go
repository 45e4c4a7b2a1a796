package serial

import (
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serialPattern = regexp.MustCompile(`^[0-9A-F]{40}$`)

func TestGenerate_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, serialPattern, s.String())
		assert.Len(t, s.Bytes(), ByteLen)
	}
}

func TestGenerate_ConcurrentUniqueness(t *testing.T) {
	const (
		workers   = 16
		perWorker = 1000
	)

	results := make([][]string, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				s, err := Generate()
				if err != nil {
					t.Error(err)
					return
				}
				out = append(out, s.String())
			}
			results[w] = out
		}(w)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers*perWorker)
	for _, batch := range results {
		for _, v := range batch {
			if _, dup := seen[v]; dup {
				t.Fatalf("duplicate serial generated: %s", v)
			}
			seen[v] = struct{}{}
		}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestParse_RoundTrip(t *testing.T) {
	s := MustGenerate()
	parsed, err := Parse(s.String())
	require.NoError(t, err)
	assert.Equal(t, s.String(), parsed.String())
	assert.True(t, s.Equal(parsed))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   \t "},
		{"too short", "ABCDEF"},
		{"too long", strings.Repeat("A", MaxLen+1)},
		{"non-hex", "ZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ"},
		{"mixed invalid", "0123456789ABCDEFG123456789ABCDEF01234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestParse_AcceptsForeignWidths(t *testing.T) {
	// Serials issued by other tooling may not be 40 chars.
	for _, input := range []string{"0123abcd", strings.Repeat("F", MaxLen)} {
		parsed, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, input, parsed.String())
	}
}

func TestSerialNumber_Zero(t *testing.T) {
	var zero SerialNumber
	assert.True(t, zero.IsZero())
	assert.False(t, zero.Equal(MustGenerate()))
}

func TestSerialNumber_BigInt(t *testing.T) {
	parsed, err := Parse("00FF00FF00FF00FF00FF")
	require.NoError(t, err)
	assert.Equal(t, parsed.BigInt().Text(16), strings.ToLower("FF00FF00FF00FF00FF"))
}
