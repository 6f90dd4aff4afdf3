// Package bpe learns a byte-pair encoding merge table from a text corpus.
//
// Token ids 0-255 are the raw bytes. Every id from 256 up names the pair of
// earlier tokens it merges, in the order the merges were learned.
package bpe

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type Token uint32

// Pair is two adjacent tokens. For byte tokens Right is unused.
type Pair struct {
	Left, Right Token
}

// Table maps a token id to the pair it expands to.
type Table []Pair

const byteTokens = 256

var magic = [4]byte{'B', 'P', 'E', '1'}

// ErrFormat is returned when a table file is not in the expected format.
var ErrFormat = errors.New("bpe: invalid table file")

// NewTable returns a table with only the byte tokens.
func NewTable() Table {
	t := make(Table, byteTokens)
	for i := range t {
		t[i] = Pair{Left: Token(i)}
	}
	return t
}

// Build learns merges from corpus, most frequent adjacent pair first, until
// no pair occurs more than once or maxMerges merges were learned. maxMerges
// <= 0 means no limit. Equally frequent pairs are merged lowest pair first.
func Build(corpus []byte, maxMerges int) Table {
	t := NewTable()
	data := make([]Token, len(corpus))
	for i, b := range corpus {
		data[i] = Token(b)
	}

	for maxMerges <= 0 || t.Merges() < maxMerges {
		best, n := mostFrequent(data)
		if n < 2 {
			break
		}
		id := Token(len(t))
		t = append(t, best)
		data = replace(data, best, id)
	}
	return t
}

func mostFrequent(data []Token) (Pair, int) {
	counts := make(map[Pair]int)
	for i := 0; i+1 < len(data); i++ {
		counts[Pair{data[i], data[i+1]}]++
	}

	var best Pair
	n := 0
	for p, c := range counts {
		if c > n || (c == n && p.less(best)) {
			best, n = p, c
		}
	}
	return best, n
}

func (p Pair) less(o Pair) bool {
	if p.Left != o.Left {
		return p.Left < o.Left
	}
	return p.Right < o.Right
}

// replace rewrites non-overlapping occurrences of p, left to right, in place.
func replace(data []Token, p Pair, id Token) []Token {
	out := data[:0]
	for i := 0; i < len(data); i++ {
		if i+1 < len(data) && data[i] == p.Left && data[i+1] == p.Right {
			out = append(out, id)
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// Merges is the number of learned merges.
func (t Table) Merges() int {
	return max(len(t)-byteTokens, 0)
}

// Expand returns the bytes token tok stands for, or nil if tok is unknown.
func (t Table) Expand(tok Token) []byte {
	if int(tok) >= len(t) {
		return nil
	}
	if tok < byteTokens {
		return []byte{byte(tok)}
	}
	p := t[tok]
	return append(t.Expand(p.Left), t.Expand(p.Right)...)
}

// Print writes the learned merges, one per line.
func (t Table) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "BPE table of size %d\n", len(t))
	for id := byteTokens; id < len(t); id++ {
		p := t[id]
		fmt.Fprintf(bw, "%s: (%s, %s)\n", FormatToken(Token(id)), FormatToken(p.Left), FormatToken(p.Right))
	}
	return bw.Flush()
}

// FormatToken renders printable ASCII as a quoted character and anything else
// as a backslash and hex id.
func FormatToken(tok Token) string {
	if tok >= 32 && tok <= 126 {
		return fmt.Sprintf("'%c'", rune(tok))
	}
	return fmt.Sprintf("\\%02x", uint32(tok))
}

// Encode writes the merges of t: a 4-byte magic, the merge count, then each
// pair as two little-endian uint32 values. Byte tokens are implied.
func Encode(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	bw.Write(magic[:])
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(t.Merges()))
	bw.Write(buf[:])
	for id := byteTokens; id < len(t); id++ {
		binary.LittleEndian.PutUint32(buf[:], uint32(t[id].Left))
		bw.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:], uint32(t[id].Right))
		bw.Write(buf[:])
	}
	return bw.Flush()
}

// Decode reads a table written by Encode. Every merge must refer only to
// tokens defined before it.
func Decode(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)

	var head [4]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if head != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, head[:])
	}

	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: merge count: %v", ErrFormat, err)
	}

	t := NewTable()
	for i := uint32(0); i < n; i++ {
		var p [2]uint32
		if err := binary.Read(br, binary.LittleEndian, &p); err != nil {
			return nil, fmt.Errorf("%w: merge %d: %v", ErrFormat, i, err)
		}
		id := Token(len(t))
		if Token(p[0]) >= id || Token(p[1]) >= id {
			return nil, fmt.Errorf("%w: merge %d refers to undefined token", ErrFormat, i)
		}
		t = append(t, Pair{Left: Token(p[0]), Right: Token(p[1])})
	}
	return t, nil
}
