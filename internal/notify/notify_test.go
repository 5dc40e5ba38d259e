package notify

import (
	"strings"
	"testing"
)

type sent struct{ title, message string }

func newTestNotifier(enabled bool) (*Notifier, *[]sent) {
	var got []sent
	n := New(enabled, nil)
	n.send = func(title, message, _ string) error {
		got = append(got, sent{title, message})
		return nil
	}
	return n, &got
}

func TestNotifier_Disabled(t *testing.T) {
	n, got := newTestNotifier(false)
	n.Success("text")
	n.Error("boom")
	if len(*got) != 0 {
		t.Errorf("sent %d notifications while disabled", len(*got))
	}

	n.SetEnabled(true)
	n.Empty()
	if len(*got) != 1 {
		t.Errorf("sent %d notifications after enabling; want 1", len(*got))
	}
}

func TestNotifier_TruncatesByRunes(t *testing.T) {
	n, got := newTestNotifier(true)
	n.Success(strings.Repeat("я", 150))

	if len(*got) != 1 {
		t.Fatalf("sent %d notifications; want 1", len(*got))
	}
	msg := (*got)[0].message
	if !strings.HasSuffix(msg, "...") || len([]rune(msg)) != maxBody+3 {
		t.Errorf("message has %d runes; want %d ending in ...", len([]rune(msg)), maxBody+3)
	}
	if !strings.HasPrefix((*got)[0].title, "mavoice: ") {
		t.Errorf("title = %q", (*got)[0].title)
	}
}
