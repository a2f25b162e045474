// Package audio measures track lengths so highlight ranges can be laid out
// against the real song duration.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// ErrUnsupported is returned for files no decoder is registered for.
var ErrUnsupported = errors.New("unsupported audio format")

// Prober reports the playback length of an audio file.
type Prober interface {
	Duration(path string) (time.Duration, error)
}

type decodeFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	".mp3": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) },
	".ogg": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) },
	".wav": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) },
}

// Supported reports whether path has an extension BeepProber can decode.
func Supported(path string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// BeepProber decodes mp3, ogg vorbis and wav streams with beep.
type BeepProber struct{}

// NewProber returns the default prober.
func NewProber() *BeepProber {
	return &BeepProber{}
}

// Duration opens path, decodes its stream header and converts the sample
// count to a duration.
func (p *BeepProber) Duration(path string) (time.Duration, error) {
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio file: %w", err)
	}

	streamer, format, err := decode(f)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	defer streamer.Close()

	n := streamer.Len()
	if n <= 0 || format.SampleRate <= 0 {
		return 0, fmt.Errorf("audio file %s reports no samples", filepath.Base(path))
	}
	return format.SampleRate.D(n), nil
}

