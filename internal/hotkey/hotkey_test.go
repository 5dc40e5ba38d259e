package hotkey

import (
	"errors"
	"path/filepath"
	"testing"

	"golang.design/x/hotkey"

	"mavoice/internal/config"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.HotkeyConfig
		wantKey  hotkey.Key
		wantMods int
		wantErr  error
	}{
		{
			name:     "dictation default",
			cfg:      config.HotkeyConfig{Modifiers: []config.Modifier{config.ModCtrl, config.ModShift}, Key: config.KeySpace},
			wantKey:  hotkey.KeySpace,
			wantMods: 2,
		},
		{
			name:     "unknown modifier skipped",
			cfg:      config.HotkeyConfig{Modifiers: []config.Modifier{config.ModCtrl, "hyper"}, Key: config.KeyL},
			wantKey:  hotkey.KeyL,
			wantMods: 1,
		},
		{
			name:    "unknown key",
			cfg:     config.HotkeyConfig{Modifiers: []config.Modifier{config.ModCtrl}, Key: "comma"},
			wantErr: ErrUnknownKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods, key, err := resolve(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v; want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if key != tt.wantKey {
				t.Errorf("key = %v; want %v", key, tt.wantKey)
			}
			if len(mods) != tt.wantMods {
				t.Errorf("got %d modifiers; want %d", len(mods), tt.wantMods)
			}
		})
	}
}

func TestKeyMapCoversDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := cfg.Hotkeys()
	for _, k := range []config.Key{d.Dictation.Key, d.Live.Key} {
		if _, ok := keyMap[k]; !ok {
			t.Errorf("default key %q missing from keyMap", k)
		}
	}
}
