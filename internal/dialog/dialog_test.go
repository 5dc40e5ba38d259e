package dialog

import (
	"errors"
	"testing"

	"github.com/ncruces/zenity"
)

func TestAskAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		err     error
		want    string
		wantErr error
	}{
		{name: "trimmed", input: "  gsk_123\n", want: "gsk_123"},
		{name: "empty", input: "   ", wantErr: ErrEmpty},
		{name: "cancelled", err: zenity.ErrCanceled, wantErr: ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry = func(string, ...zenity.Option) (string, error) { return tt.input, tt.err }
			t.Cleanup(func() { entry = zenity.Entry })

			got, err := AskAPIKey(Groq)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v; want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("key = %q; want %q", got, tt.want)
			}
		})
	}
}
