package hmm

import (
	"strings"
	"unicode/utf8"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
)

// WordTag is a word with its POS label.
type WordTag struct {
	Word string `json:"word"`
	POS  string `json:"pos"`
}

// Record is one corpus line flattened into observation symbols and their states.
// Symbols and States always have the same length.
type Record struct {
	Symbols []string
	States  []State
}

// Len returns the number of (symbol, state) pairs.
func (r Record) Len() int {
	return len(r.States)
}

// bracketWord is a collapsed bracket group waiting to be put back in line order.
type bracketWord struct {
	offset int // rune offset in the excised line
	word   WordTag
}

// ParseLine splits a training line into (word, POS) pairs.
//
// Plain tokens look like "迈向/v". A bracket group "[希望/n 工程/n]nz" becomes the
// single word "希望工程" tagged with the letters that follow the closing bracket.
func ParseLine(line string) ([]WordTag, error) {
	rest, groups, err := exciseBrackets(line)
	if err != nil {
		return nil, err
	}

	var out []WordTag
	start := 0
	for _, g := range groups {
		words, err := parseTokens(string(rest[start:g.offset]))
		if err != nil {
			return nil, err
		}
		out = append(out, words...)
		out = append(out, g.word)
		start = g.offset
	}
	words, err := parseTokens(string(rest[start:]))
	if err != nil {
		return nil, err
	}
	return append(out, words...), nil
}

// exciseBrackets removes bracket groups left to right. Indices are taken from the
// original line, so every excision adds its length to a running correction that
// maps later original indices onto the shortened line.
func exciseBrackets(line string) ([]rune, []bracketWord, error) {
	orig := []rune(line)
	cur := make([]rune, len(orig))
	copy(cur, orig)

	var groups []bracketWord
	removed := 0
	open := -1
	for i, r := range orig {
		switch r {
		case '[':
			if open >= 0 {
				return nil, nil, taggererrors.MalformedRecord("nested '[' at rune %d", i)
			}
			open = i - removed
		case ']':
			if open < 0 {
				return nil, nil, taggererrors.MalformedRecord("']' without matching '[' at rune %d", i)
			}
			closeAt := i - removed
			tagLen := 0
			for tagLen < 2 && closeAt+1+tagLen < len(cur) && isASCIILetter(cur[closeAt+1+tagLen]) {
				tagLen++
			}
			if tagLen == 0 {
				return nil, nil, taggererrors.MalformedRecord("bracket group closed at rune %d has no POS tag", i)
			}
			end := closeAt + 1 + tagLen

			word, err := joinGroup(string(cur[open+1 : closeAt]))
			if err != nil {
				return nil, nil, err
			}
			groups = append(groups, bracketWord{
				offset: open,
				word:   WordTag{Word: word, POS: string(cur[closeAt+1 : end])},
			})

			cur = append(cur[:open], cur[end:]...)
			removed += end - open
			open = -1
		}
	}
	if open >= 0 {
		return nil, nil, taggererrors.MalformedRecord("'[' at rune %d is never closed", open+removed)
	}
	return cur, groups, nil
}

// joinGroup concatenates the word parts of the tokens inside a bracket group.
func joinGroup(inner string) (string, error) {
	words, err := parseTokens(inner)
	if err != nil {
		return "", err
	}
	if len(words) == 0 {
		return "", taggererrors.MalformedRecord("empty bracket group")
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Word)
	}
	return b.String(), nil
}

func parseTokens(s string) ([]WordTag, error) {
	var out []WordTag
	for _, token := range strings.Split(s, " ") {
		if token == "" {
			continue
		}
		slash := strings.LastIndex(token, "/")
		if slash < 0 {
			return nil, taggererrors.MalformedRecord("token %q has no POS suffix", token)
		}
		word, pos := token[:slash], token[slash+1:]
		if word == "" || pos == "" {
			return nil, taggererrors.MalformedRecord("token %q has an empty word or POS", token)
		}
		out = append(out, WordTag{Word: word, POS: pos})
	}
	return out, nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Label returns the composite states of a word.
// Numerals and one-character words are Single; longer words are B, M..., E.
func Label(word, pos string) ([]State, error) {
	label := strings.ToLower(pos)
	if !IsLabel(label) {
		return nil, taggererrors.MalformedRecord("word %q has unknown POS label %q", word, pos)
	}
	n := utf8.RuneCountInString(word)
	if n == 0 {
		return nil, taggererrors.MalformedRecord("empty word tagged %q", pos)
	}
	if label == NumeralLabel || n == 1 {
		return []State{{Position: Single, Label: label}}, nil
	}

	states := make([]State, 0, n)
	states = append(states, State{Position: Begin, Label: label})
	for i := 0; i < n-2; i++ {
		states = append(states, State{Position: Middle, Label: label})
	}
	return append(states, State{Position: End, Label: label}), nil
}

// NewRecord flattens (word, POS) pairs into a training record.
// A numeral word stays one symbol so that it lines up with its single state.
func NewRecord(words []WordTag) (Record, error) {
	var rec Record
	for _, w := range words {
		states, err := Label(w.Word, w.POS)
		if err != nil {
			return Record{}, err
		}
		if len(states) == 1 {
			rec.Symbols = append(rec.Symbols, w.Word)
		} else {
			for _, r := range w.Word {
				rec.Symbols = append(rec.Symbols, string(r))
			}
		}
		rec.States = append(rec.States, states...)
	}
	return rec, nil
}
