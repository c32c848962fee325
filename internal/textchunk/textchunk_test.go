package textchunk_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"dubshorts/internal/textchunk"
)

func TestSentences(t *testing.T) {
	got := textchunk.Sentences("  Hello there. How are you?Fine!  Great...  ok  ")
	want := []string{"Hello there.", "How are you?Fine!", "Great...", "ok"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitRespectsBudgetAndOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 5000; i++ {
		b.WriteString("This is sentence number ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString(" in a long transcript. ")
	}
	text := b.String()

	segments := textchunk.Split(text, 4500)
	if len(segments) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segments))
	}
	for i, segment := range segments {
		if n := utf8.RuneCountInString(segment); n > 4500 {
			t.Fatalf("segment %d has %d chars", i, n)
		}
	}
	if got, want := strings.Join(segments, " "), strings.Join(textchunk.Sentences(text), " "); got != want {
		t.Fatal("rejoined segments do not reproduce sentence order")
	}
}

func TestSplitCountsRunes(t *testing.T) {
	// Each sentence is 11 runes but far more bytes.
	sentence := "नमस्ते दुन."
	text := strings.Repeat(sentence+" ", 4)
	segments := textchunk.Split(text, 23)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %q", len(segments), segments)
	}
	for _, segment := range segments {
		if n := utf8.RuneCountInString(segment); n > 23 {
			t.Fatalf("segment exceeds budget: %d runes", n)
		}
	}
}

func TestSplitOversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("a", 30) + "."
	segments := textchunk.Split("Short one. "+long+" Tail.", 20)
	want := []string{"Short one.", long, "Tail."}
	if len(segments) != len(want) {
		t.Fatalf("got %q, want %q", segments, want)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Fatalf("segment %d = %q, want %q", i, segments[i], want[i])
		}
	}
}

func TestSplitEdgeCases(t *testing.T) {
	if got := textchunk.Split("   ", 10); got != nil {
		t.Fatalf("expected nil for blank input, got %q", got)
	}
	got := textchunk.Split("One. Two. Three.", 0)
	if len(got) != 1 || got[0] != "One. Two. Three." {
		t.Fatalf("expected single unbounded segment, got %q", got)
	}
	got = textchunk.Split("One. Two.", 9)
	if len(got) != 1 || got[0] != "One. Two." {
		t.Fatalf("expected exact-fit segment, got %q", got)
	}
}
