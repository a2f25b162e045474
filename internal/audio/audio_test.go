package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

func writeSilentWAV(t *testing.T, path string, rate beep.SampleRate, samples int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(samples), format); err != nil {
		t.Fatalf("failed to encode wav: %v", err)
	}
}

func TestBeepProber_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	writeSilentWAV(t, path, 8000, 12000)

	got, err := NewProber().Duration(path)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", got)
	}
}

func TestBeepProber_UppercaseExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AUDIO.WAV")
	writeSilentWAV(t, path, 44100, 44100)

	got, err := NewProber().Duration(path)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
}

func TestBeepProber_Unsupported(t *testing.T) {
	_, err := NewProber().Duration("song.flac")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestBeepProber_MissingFile(t *testing.T) {
	_, err := NewProber().Duration(filepath.Join(t.TempDir(), "missing.mp3"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestBeepProber_Garbage(t *testing.T) {
	for _, name := range []string{"bad.wav", "bad.ogg"} {
		path := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(path, []byte("definitely not audio"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := NewProber().Duration(path); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.mp3":  true,
		"a.OGG":  true,
		"a.wav":  true,
		"a.flac": false,
		"a":      false,
	}
	for path, want := range tests {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
