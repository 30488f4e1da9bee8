// Package hmm implements joint Chinese word segmentation and part-of-speech
// tagging with a first-order hidden Markov model over composite states.
//
// A composite state pairs a position marker (B, M, E, S) with a POS label, so a
// decoded state path carries both the word boundaries and the word tags.
package hmm

import (
	"fmt"
	"strings"
)

// PositionTag marks a character's role inside a word.
type PositionTag uint8

const (
	Begin PositionTag = iota
	Middle
	End
	Single
)

var positionNames = [...]string{Begin: "B", Middle: "M", End: "E", Single: "S"}

func (p PositionTag) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return fmt.Sprintf("PositionTag(%d)", p)
}

// NumeralLabel is the POS label whose words are always tagged Single.
const NumeralLabel = "m"

// Labels is the POS label set of the People's Daily corpus, in alphabet order.
//
//	ag 形语素  a 形容词  ad 副形词  an 名形词  b 区别词  bg 区别语素  c 连词
//	dg 副语素  d 副词  e 叹词  f 方位词  g 语素  h 前接成分  i 成语  j 简称略语
//	k 后接成分  l 习用语  m 数词  mg 数语素  ng 名语素  n 名词  nr 人名  ns 地名
//	nt 机构团体  nx 字母专名  nz 其他专名  o 拟声词  p 介词  q 量词  r 代词
//	s 处所词  tg 时语素  t 时间词  u 助词  vg 动语素  v 动词  vd 副动词
//	vn 名动词  w 标点符号  x 非语素字  y 语气词  z 状态词
var Labels = []string{
	"ag", "a", "ad", "an", "b", "bg", "c", "dg", "d", "e", "f",
	"g", "h", "i", "j", "k", "l", "m", "mg", "ng", "n", "nr",
	"ns", "nt", "nx", "nz", "o", "p", "q", "r", "s", "tg", "t",
	"u", "vg", "v", "vd", "vn", "w", "x", "y", "z",
}

// State is a composite hidden state. It is comparable and used as a map key.
type State struct {
	Position PositionTag
	Label    string
}

// String renders the state as "B_n".
func (s State) String() string {
	return s.Position.String() + "_" + s.Label
}

// Index returns the rank of s in the alphabet order, or -1 for states outside it.
// The alphabet is position-major: every B state, then M, E and S.
func (s State) Index() int {
	li, ok := labelIndex[s.Label]
	if !ok || s.Position > Single {
		return -1
	}
	return int(s.Position)*len(Labels) + li
}

// Valid reports whether s belongs to the alphabet.
func (s State) Valid() bool {
	return s.Index() >= 0
}

var (
	labelIndex = func() map[string]int {
		m := make(map[string]int, len(Labels))
		for i, l := range Labels {
			m[l] = i
		}
		return m
	}()

	alphabet = func() []State {
		states := make([]State, 0, 4*len(Labels))
		for _, p := range []PositionTag{Begin, Middle, End, Single} {
			for _, l := range Labels {
				states = append(states, State{Position: p, Label: l})
			}
		}
		return states
	}()
)

// Alphabet returns every composite state in alphabet order. The slice is a copy.
func Alphabet() []State {
	out := make([]State, len(alphabet))
	copy(out, alphabet)
	return out
}

// AlphabetSize is the number of composite states.
func AlphabetSize() int {
	return len(alphabet)
}

// IsLabel reports whether label is a known POS label.
func IsLabel(label string) bool {
	_, ok := labelIndex[label]
	return ok
}

// ParseState parses the "B_n" form produced by State.String.
func ParseState(s string) (State, error) {
	pos, label, ok := strings.Cut(s, "_")
	if !ok {
		return State{}, fmt.Errorf("state %q has no position separator", s)
	}
	var st State
	switch pos {
	case "B":
		st.Position = Begin
	case "M":
		st.Position = Middle
	case "E":
		st.Position = End
	case "S":
		st.Position = Single
	default:
		return State{}, fmt.Errorf("state %q has unknown position %q", s, pos)
	}
	if !IsLabel(label) {
		return State{}, fmt.Errorf("state %q has unknown POS label %q", s, label)
	}
	st.Label = label
	return st, nil
}
