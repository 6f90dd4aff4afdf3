package export

import (
	"fmt"
	"io"
	"regexp"
	"sort"

	"chatfilter/internal/domain"
)

var (
	// <:name:id> and animated <a:name:id>, with 19-digit snowflake ids.
	emojiPattern   = regexp.MustCompile(`<a?(:.+?:)\d{19}>`)
	mentionPattern = regexp.MustCompile(`<@\d{19}>`)
)

// Anonymize replaces custom emoji markup with its :name: and user mentions
// with @user.
func Anonymize(text string) string {
	text = emojiPattern.ReplaceAllString(text, "${1}")
	return mentionPattern.ReplaceAllString(text, "@user")
}

// EmojiCount is how often one custom emoji appears.
type EmojiCount struct {
	Name  string
	Count int
}

// TopEmojis counts custom emoji by :name: across msgs and returns the n most
// frequent, most frequent first. Ties are ordered by name. n <= 0 returns all.
func TopEmojis(msgs []domain.Message, n int) []EmojiCount {
	counts := make(map[string]int)
	for _, m := range msgs {
		for _, match := range emojiPattern.FindAllStringSubmatch(m.Content, -1) {
			counts[match[1]]++
		}
	}

	top := make([]EmojiCount, 0, len(counts))
	for name, c := range counts {
		top = append(top, EmojiCount{Name: name, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if n > 0 && n < len(top) {
		top = top[:n]
	}
	return top
}

// WriteEmojis writes one "name<TAB>count" line per entry.
func WriteEmojis(w io.Writer, top []EmojiCount) error {
	for _, e := range top {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", e.Name, e.Count); err != nil {
			return err
		}
	}
	return nil
}
