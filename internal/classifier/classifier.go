// Package classifier implements the heuristic spam predicate applied to chat
// message text.
package classifier

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"chatfilter/internal/domain"
)

// Rule names the predicate branch that decided a verdict.
type Rule string

const (
	RuleLength     Rule = "length"
	RuleNewlines   Rule = "newlines"
	RuleShort      Rule = "short"
	RuleRepetition Rule = "repetition"
	RuleNone       Rule = "none"
)

// SpamRules lists the rules that mark a message as spam, in evaluation order.
var SpamRules = []Rule{RuleLength, RuleNewlines, RuleRepetition}

// Thresholds parameterise the predicate.
type Thresholds struct {
	MaxChars       int     // longer messages (in characters) are spam
	MaxNewlines    int     // messages with more newlines are spam
	MinWords       int     // fewer words skips the repetition check
	MinUniqueRatio float64 // distinct/total words below this is spam
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxChars:       600,
		MaxNewlines:    15,
		MinWords:       5,
		MinUniqueRatio: 0.4,
	}
}

// Verdict is the outcome of classifying one message.
type Verdict struct {
	Spam bool
	Rule Rule
}

// Classifier applies a fixed set of thresholds. It holds no mutable state.
type Classifier struct {
	t Thresholds
}

func New(t Thresholds) *Classifier {
	return &Classifier{t: t}
}

func (c *Classifier) Thresholds() Thresholds { return c.t }

// Classify evaluates the rules in order; the first one that fires decides.
func (c *Classifier) Classify(text string) Verdict {
	if utf8.RuneCountInString(text) > c.t.MaxChars {
		return Verdict{Spam: true, Rule: RuleLength}
	}
	if strings.Count(text, "\n") > c.t.MaxNewlines {
		return Verdict{Spam: true, Rule: RuleNewlines}
	}

	words := strings.FieldsFunc(text, isSpace)
	if len(words) == 0 || len(words) < c.t.MinWords {
		return Verdict{Rule: RuleShort}
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(words))
	if ratio < c.t.MinUniqueRatio {
		return Verdict{Spam: true, Rule: RuleRepetition}
	}
	return Verdict{Rule: RuleNone}
}

// isSpace also treats the ASCII information separators (U+001C to U+001F) as
// word breaks, the same set Python's str.split uses.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func (c *Classifier) IsSpam(text string) bool {
	return c.Classify(text).Spam
}

// Entropy returns the Shannon entropy of text's bytes, in bits per byte.
func Entropy(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(text); i++ {
		freq[text[i]]++
	}
	total := float64(len(text))
	h := 0.0
	for _, n := range freq {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		h -= p * math.Log2(p)
	}
	return h
}

// Labeled is a message together with its position in the input and its verdict.
type Labeled struct {
	Index   int
	Message domain.Message
	Verdict Verdict
}

// Partition splits msgs into clean and removed sets, both in input order.
type Partition struct {
	Clean   []Labeled
	Removed []Labeled
}

func (p Partition) Total() int { return len(p.Clean) + len(p.Removed) }

// CleanMessages returns the messages that passed the filter, in input order.
func (p Partition) CleanMessages() []domain.Message {
	msgs := make([]domain.Message, len(p.Clean))
	for i, l := range p.Clean {
		msgs[i] = l.Message
	}
	return msgs
}

// Split classifies every message and partitions the result.
func Split(msgs []domain.Message, c *Classifier) Partition {
	var p Partition
	for i, m := range msgs {
		l := Labeled{Index: i, Message: m, Verdict: c.Classify(m.Content)}
		if l.Verdict.Spam {
			p.Removed = append(p.Removed, l)
		} else {
			p.Clean = append(p.Clean, l)
		}
	}
	return p
}
