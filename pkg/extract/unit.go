package extract

import (
	"regexp"
	"strings"
	"unicode"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// Unit is a span of consecutive sentences sent to the model in one request.
type Unit struct {
	ID     string
	FileID string
	Start  int
	End    int
	Text   string
}

// TokenCounter returns the number of model tokens in text.
type TokenCounter func(text string) int

// NewTikTokenCounter returns a TokenCounter for the named tiktoken encoding.
func NewTikTokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// SplitIntoUnits groups the sentences of text into units of at most
// maxTokens tokens. A single sentence longer than the limit becomes a unit
// of its own.
func SplitIntoUnits(text, fileID string, maxTokens int, count TokenCounter) ([]Unit, error) {
	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var units []Unit
	start := 0

	flush := func(end int) error {
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		units = append(units, Unit{
			ID:     id,
			FileID: fileID,
			Start:  start,
			End:    end,
			Text:   joinSentences(sentences[start:end]),
		})
		start = end
		return nil
	}

	for i := 1; i < len(sentences); i++ {
		if count(joinSentences(sentences[start:i+1])) > maxTokens {
			if err := flush(i); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(len(sentences)); err != nil {
		return nil, err
	}

	return units, nil
}

func joinSentences(s []string) string {
	var b strings.Builder
	for i, sentence := range s {
		if i > 0 && !isCJKBoundary(s[i-1], sentence) {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String())
}

func isCJKBoundary(prev, next string) bool {
	last, _ := lastRune(prev)
	first := []rune(next)
	return isCJK(last) && len(first) > 0 && isCJK(first[0])
}

func lastRune(s string) (rune, bool) {
	r := []rune(s)
	if len(r) == 0 {
		return 0, false
	}
	return r[len(r)-1], true
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r) ||
		strings.ContainsRune("。！？；，、」』）", r)
}

var tableDelimRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)

func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && strings.Contains(trimmed, "|")
}

// splitIntoSentences breaks text into sentences. Blank lines end a
// sentence, wrapped lines are joined and markdown tables are kept whole.
func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")
	var sentences []string
	var current strings.Builder
	inTable := false

	emit := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	addLine := func(line string) {
		for _, part := range splitLineIntoSentences(line) {
			if current.Len() > 0 && !isCJKBoundary(current.String(), part) {
				current.WriteString(" ")
			}
			current.WriteString(part)
			if endsSentence(part) {
				emit()
			}
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inTable {
			if isTableRow(line) {
				current.WriteString("\n")
				current.WriteString(line)
				continue
			}
			inTable = false
			emit()
		}

		switch {
		case trimmed == "":
			emit()
		case isTableRow(line) && i+1 < len(lines) && tableDelimRe.MatchString(strings.TrimSpace(lines[i+1])):
			emit()
			inTable = true
			current.WriteString(line)
		case isTableRow(line):
			emit()
			sentences = append(sentences, trimmed)
		default:
			addLine(trimmed)
		}
	}
	emit()

	return sentences
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	return strings.ContainsRune("\"')]}”’」』）", r)
}

func endsSentence(s string) bool {
	s = strings.TrimRightFunc(strings.TrimSpace(s), isCloser)
	r, ok := lastRune(s)
	return ok && isTerminator(r)
}

func splitLineIntoSentences(line string) []string {
	runes := []rune(line)
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if !isTerminator(runes[i]) {
			continue
		}

		// "1. item" style listings
		if runes[i] == '.' && i > 0 && unicode.IsDigit(runes[i-1]) && i+1 < len(runes) && runes[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(runes) && isTerminator(runes[j]) {
			current.WriteRune(runes[j])
			j++
		}
		for j < len(runes) && isCloser(runes[j]) {
			current.WriteRune(runes[j])
			j++
		}
		// decimals and abbreviations like "3.14" or "e.g"
		if runes[i] == '.' && j < len(runes) && !unicode.IsSpace(runes[j]) && !isCJK(runes[j]) {
			i = j - 1
			continue
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
		i = j - 1
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
