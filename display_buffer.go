package webserial

// DisplayBufferLimit is the most characters the display buffer holds.
const DisplayBufferLimit = 10000

// displayBuffer keeps the last limit code points appended to it.
type displayBuffer struct {
	limit int
	runes []rune
}

func newDisplayBuffer(limit int) *displayBuffer {
	return &displayBuffer{limit: limit}
}

// Append adds text and drops the oldest characters past the limit.
func (b *displayBuffer) Append(text string) {
	for _, r := range text {
		b.runes = append(b.runes, r)
	}
	if over := len(b.runes) - b.limit; over > 0 {
		// compact in place so the backing array does not keep growing
		n := copy(b.runes, b.runes[over:])
		b.runes = b.runes[:n]
	}
}

func (b *displayBuffer) String() string { return string(b.runes) }

// Len is the number of characters held.
func (b *displayBuffer) Len() int { return len(b.runes) }

func (b *displayBuffer) Reset() { b.runes = b.runes[:0] }
