package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidWAV is returned for files that are not readable PCM WAV.
var ErrInvalidWAV = errors.New("invalid WAV file")

// WAVFormat is the subset of the fmt chunk needed to compute duration.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataBytes     int64
}

// Duration returns the audio length in seconds.
func (f WAVFormat) Duration() float64 {
	if f.BlockAlign == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := f.DataBytes / int64(f.BlockAlign)
	return float64(frames) / float64(f.SampleRate)
}

// WAVDuration returns the duration in seconds of the WAV file at path.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	format, err := ReadWAVFormat(f, info.Size())
	if err != nil {
		return 0, err
	}
	return format.Duration(), nil
}

// ReadWAVFormat walks the RIFF chunks of r until it has both the fmt and data
// chunks. size is the total stream length; it bounds a data chunk whose
// header size is unset, as written by encoders streaming to a pipe.
func ReadWAVFormat(r io.Reader, size int64) (WAVFormat, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return WAVFormat{}, fmt.Errorf("%w: short header", ErrInvalidWAV)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVFormat{}, fmt.Errorf("%w: not RIFF/WAVE", ErrInvalidWAV)
	}

	var (
		format  WAVFormat
		haveFmt bool
		offset  int64 = 12
	)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return WAVFormat{}, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
		}
		offset += 8
		id := string(ch[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			if chunkSize < 16 {
				return WAVFormat{}, fmt.Errorf("%w: fmt chunk too small", ErrInvalidWAV)
			}
			var b [16]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return WAVFormat{}, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			format.AudioFormat = binary.LittleEndian.Uint16(b[0:2])
			format.Channels = binary.LittleEndian.Uint16(b[2:4])
			format.SampleRate = binary.LittleEndian.Uint32(b[4:8])
			format.ByteRate = binary.LittleEndian.Uint32(b[8:12])
			format.BlockAlign = binary.LittleEndian.Uint16(b[12:14])
			format.BitsPerSample = binary.LittleEndian.Uint16(b[14:16])
			haveFmt = true
			if err := skip(r, chunkSize-16+chunkSize%2); err != nil {
				return WAVFormat{}, err
			}
		case "data":
			if !haveFmt {
				return WAVFormat{}, fmt.Errorf("%w: data before fmt", ErrInvalidWAV)
			}
			remaining := size - offset
			if chunkSize == 0xFFFFFFFF || (size > 0 && chunkSize > remaining) {
				chunkSize = remaining
			}
			if chunkSize < 0 {
				chunkSize = 0
			}
			format.DataBytes = chunkSize
			return format, nil
		default:
			if err := skip(r, chunkSize+chunkSize%2); err != nil {
				return WAVFormat{}, err
			}
		}
		offset += chunkSize + chunkSize%2
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: truncated chunk", ErrInvalidWAV)
	}
	return nil
}
