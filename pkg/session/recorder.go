package session

import (
	"encoding/binary"
	"os"

	"github.com/murmurlabs/verbatim/pkg/audio"
)

// Recorder writes session audio as 16-bit PCM WAV. The header sizes are
// patched on close.
type Recorder struct {
	f        *os.File
	channels int
	dataLen  uint32
}

const wavHeaderLen = 44

// NewRecorder creates the file and reserves the header.
func NewRecorder(path string, channels int) (*Recorder, error) {
	if channels < 1 {
		channels = 1
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := &Recorder{f: f, channels: channels}
	if err := r.writeHeader(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return r, nil
}

// Write appends interleaved float samples.
func (r *Recorder) Write(samples []float32) error {
	buf := audio.EncodePCM16(samples)
	n, err := r.f.Write(buf)
	r.dataLen += uint32(n)
	return err
}

// Close patches the RIFF sizes and closes the file.
func (r *Recorder) Close() error {
	if _, err := r.f.Seek(0, 0); err != nil {
		r.f.Close()
		return err
	}
	if err := r.writeHeader(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

func (r *Recorder) writeHeader() error {
	const bitsPerSample = 16
	byteRate := uint32(audio.SampleRate * r.channels * bitsPerSample / 8)
	blockAlign := uint16(r.channels * bitsPerSample / 8)

	h := make([]byte, 0, wavHeaderLen)
	h = append(h, "RIFF"...)
	h = binary.LittleEndian.AppendUint32(h, 36+r.dataLen)
	h = append(h, "WAVE"...)
	h = append(h, "fmt "...)
	h = binary.LittleEndian.AppendUint32(h, 16)
	h = binary.LittleEndian.AppendUint16(h, 1) // PCM
	h = binary.LittleEndian.AppendUint16(h, uint16(r.channels))
	h = binary.LittleEndian.AppendUint32(h, audio.SampleRate)
	h = binary.LittleEndian.AppendUint32(h, byteRate)
	h = binary.LittleEndian.AppendUint16(h, blockAlign)
	h = binary.LittleEndian.AppendUint16(h, bitsPerSample)
	h = append(h, "data"...)
	h = binary.LittleEndian.AppendUint32(h, r.dataLen)

	_, err := r.f.Write(h)
	return err
}
