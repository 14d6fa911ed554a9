package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestBufferKeepsMostRecent(t *testing.T) {
	b := NewBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		b.Notify(Info(msg))
	}

	got := b.Recent()
	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("Recent() returned %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Message != want[i] {
			t.Errorf("Recent()[%d] = %q, want %q", i, got[i].Message, want[i])
		}
	}
}

func TestBufferPartial(t *testing.T) {
	b := NewBuffer(4)
	b.Notify(Success("one"))
	got := b.Recent()
	if len(got) != 1 || got[0].Message != "one" || got[0].Level != LevelSuccess {
		t.Errorf("Recent() = %+v", got)
	}
}

func TestWriterPrefixesByLevel(t *testing.T) {
	var buf bytes.Buffer
	w := Writer(&buf)
	w.Notify(Success("saved"))
	w.Notify(Error("failed"))

	out := buf.String()
	if !strings.Contains(out, "✅ saved") {
		t.Errorf("missing success line in %q", out)
	}
	if !strings.Contains(out, "❌ failed") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestMultiSkipsNil(t *testing.T) {
	var r1, r2 Recorder
	m := Multi(&r1, nil, &r2)
	m.Notify(Info("hello"))

	if len(r1.All()) != 1 || len(r2.All()) != 1 {
		t.Errorf("Multi() did not reach every notifier")
	}
	if last, ok := r2.Last(); !ok || last.Message != "hello" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}
