package match

import (
	"unicode/utf8"

	"github.com/gnolang/revxslt/token"
)

// position addresses the instance stream of one scope: an item index and a
// byte offset into that item when it is text.
type position struct {
	item int
	off  int
}

// stream is the normalized instance sequence of one scope. Text items hold
// no leading, trailing or repeated spaces.
type stream struct {
	items []token.Token
}

// canon moves p past separating spaces and exhausted text items, so that two
// positions denoting the same remaining input compare equal.
func (s *stream) canon(p position) position {
	for p.item < len(s.items) {
		text, ok := s.items[p.item].(*token.Text)
		if !ok {
			p.off = 0
			return p
		}
		for p.off < len(text.Value) && text.Value[p.off] == ' ' {
			p.off++
		}
		if p.off < len(text.Value) {
			return p
		}
		p = position{item: p.item + 1}
	}
	return position{item: len(s.items)}
}

func (s *stream) atEnd(p position) bool {
	return p.item >= len(s.items)
}

// text returns the unread part of the text item at p.
func (s *stream) text(p position) (string, bool) {
	if s.atEnd(p) {
		return "", false
	}
	text, ok := s.items[p.item].(*token.Text)
	if !ok {
		return "", false
	}
	return text.Value[p.off:], true
}

// tag returns the element at p.
func (s *stream) tag(p position) (*token.Tag, bool) {
	if s.atEnd(p) || p.off != 0 {
		return nil, false
	}
	tag, ok := s.items[p.item].(*token.Tag)
	return tag, ok
}

// advance returns the canonical position n bytes further into the text at p.
func (s *stream) advance(p position, n int) position {
	return s.canon(position{item: p.item, off: p.off + n})
}

// next returns the canonical position of the item after the one at p.
func (s *stream) next(p position) position {
	return s.canon(position{item: p.item + 1})
}

// remaining counts the elements and the non-space runes left from p.
func (s *stream) remaining(p position) (tags, runes int) {
	for i := p.item; i < len(s.items); i++ {
		switch v := s.items[i].(type) {
		case *token.Tag:
			tags++
		case *token.Text:
			text := v.Value
			if i == p.item {
				text = text[p.off:]
			}
			runes += nonSpaceRunes(text)
		}
	}
	return tags, runes
}

func nonSpaceRunes(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' {
			n++
		}
	}
	return n
}

// captureEnds lists the byte offsets at which a capture starting at the
// beginning of text may stop: rune boundaries that do not follow a space,
// shortest first.
func captureEnds(text string) []int {
	ends := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := 0; i <= len(text); i++ {
		if i < len(text) && !utf8.RuneStart(text[i]) {
			continue
		}
		if i > 0 && text[i-1] == ' ' {
			continue
		}
		ends = append(ends, i)
	}
	return ends
}
