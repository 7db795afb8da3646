// Package wavcheck validates PCM WAV files and estimates how much of a
// fragment is silence, by decoding the audio in process.
package wavcheck

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dral/internal/services"
)

const chunkFrames = 4096

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DefaultSilenceFloor is the peak amplitude, as a fraction of full scale,
// below which a window counts as silent.
const DefaultSilenceFloor = 0.001

// DefaultWindow is the analysis window for silence detection.
const DefaultWindow = 100 * time.Millisecond

// Info summarizes a decoded WAV file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
	Duration   time.Duration
}

// Inspect checks the RIFF/WAVE header and decodes every PCM frame.
func Inspect(path string) (Info, error) {
	var info Info
	err := decode(path, func(format *audio.Format, bitDepth int) {
		info.SampleRate = format.SampleRate
		info.Channels = format.NumChannels
		info.BitDepth = bitDepth
	}, func(buf *audio.IntBuffer) {
		if info.Channels > 0 {
			info.Frames += len(buf.Data) / info.Channels
		}
	})
	if err != nil {
		return Info{}, err
	}
	if info.SampleRate > 0 {
		info.Duration = time.Duration(float64(info.Frames) / float64(info.SampleRate) * float64(time.Second))
	}
	return info, nil
}

// SilentShare returns the fraction of windows whose peak amplitude across all
// channels stays below floor (a fraction of full scale).
func SilentShare(path string, window time.Duration, floor float64) (float64, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	var (
		channels   int
		full       float64
		perWindow  int
		frameInWin int
		peak       float64
		windows    int
		silent     int
	)
	err := decode(path, func(format *audio.Format, bitDepth int) {
		channels = format.NumChannels
		full = float64(int64(1)<<(bitDepth-1) - 1)
		perWindow = int(float64(format.SampleRate) * window.Seconds())
		if perWindow < 1 {
			perWindow = 1
		}
	}, func(buf *audio.IntBuffer) {
		for i := 0; i+channels <= len(buf.Data); i += channels {
			for ch := 0; ch < channels; ch++ {
				if v := math.Abs(float64(buf.Data[i+ch])) / full; v > peak {
					peak = v
				}
			}
			frameInWin++
			if frameInWin == perWindow {
				windows++
				if peak < floor {
					silent++
				}
				frameInWin, peak = 0, 0
			}
		}
	})
	if err != nil {
		return 0, err
	}
	if frameInWin > 0 {
		windows++
		if peak < floor {
			silent++
		}
	}
	if windows == 0 {
		return 1, nil
	}
	return float64(silent) / float64(windows), nil
}

// MostlySilent reports whether more than share of the file is silent.
func MostlySilent(path string, share float64) (bool, error) {
	got, err := SilentShare(path, DefaultWindow, DefaultSilenceFloor)
	if err != nil {
		return false, err
	}
	return got > share, nil
}

func decode(path string, onFormat func(*audio.Format, int), onChunk func(*audio.IntBuffer)) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "wavcheck", "open", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return invalid(path, "not a RIFF/WAVE file", d.Err())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return invalid(path, "rewind", err)
	}
	d = wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return invalid(path, "read header", err)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return invalid(path, fmt.Sprintf("unsupported audio format %d", d.WavAudioFormat), nil)
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return invalid(path, "missing channel count or sample rate", nil)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return invalid(path, fmt.Sprintf("unsupported bit depth %d", d.BitDepth), nil)
	}

	format := &audio.Format{NumChannels: int(d.NumChans), SampleRate: int(d.SampleRate)}
	onFormat(format, int(d.BitDepth))

	buf := &audio.IntBuffer{Format: format, Data: make([]int, chunkFrames*format.NumChannels), SourceBitDepth: int(d.BitDepth)}
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return invalid(path, "decode samples", err)
		}
		if n == 0 {
			break
		}
		onChunk(&audio.IntBuffer{Format: format, Data: buf.Data[:n], SourceBitDepth: buf.SourceBitDepth})
	}
	if err := d.Err(); err != nil && !errors.Is(err, io.EOF) {
		return invalid(path, "decode samples", err)
	}
	return nil
}

func invalid(path, message string, err error) error {
	return services.Wrap(services.ErrValidation, "wavcheck", path, message, err)
}
