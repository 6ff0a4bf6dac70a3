package webserial

import (
	"math/rand"
	"strings"
	"testing"
)

func TestDisplayBuffer_Append(t *testing.T) {
	b := newDisplayBuffer(5)

	b.Append("abc")
	if b.String() != "abc" || b.Len() != 3 {
		t.Fatalf("unexpected buffer %q", b.String())
	}

	b.Append("def")
	if b.String() != "bcdef" {
		t.Fatalf("expected oldest characters dropped, got %q", b.String())
	}

	b.Append("0123456789")
	if b.String() != "56789" {
		t.Fatalf("expected suffix of a long append, got %q", b.String())
	}

	b.Reset()
	if b.String() != "" || b.Len() != 0 {
		t.Fatalf("reset left %q", b.String())
	}
}

func TestDisplayBuffer_CountsCharacters(t *testing.T) {
	b := newDisplayBuffer(4)
	b.Append("ёжик")
	b.Append("и")

	if b.String() != "жики" {
		t.Fatalf("expected characters, not bytes, to be counted: %q", b.String())
	}
}

func TestDisplayBuffer_RandomAppends(t *testing.T) {
	const limit = 64
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcxyz ёж\n")

	b := newDisplayBuffer(limit)
	var all []rune
	for i := 0; i < 500; i++ {
		var sb strings.Builder
		for n := rng.Intn(20); n > 0; n-- {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := sb.String()
		b.Append(text)
		all = append(all, []rune(text)...)

		want := all
		if len(want) > limit {
			want = want[len(want)-limit:]
		}
		if b.String() != string(want) {
			t.Fatalf("step %d: display %q is not the last %d characters", i, b.String(), limit)
		}
	}
}
