// Package audio converts captured microphone samples into the 16 kHz
// 16-bit mono PCM the transcription service expects. Browsers capture
// at 48 kHz float; the transform is linear resampling plus quantization,
// cheap enough to run inline on the upload path.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const TargetSampleRate = 16000

// DownsampleFloat32 resamples mono float32 samples from inRate to
// 16 kHz and quantizes to int16.
func DownsampleFloat32(samples []float32, inRate int) ([]int16, error) {
	if inRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", inRate)
	}
	if inRate != TargetSampleRate {
		samples = resampleLinear(samples, inRate, TargetSampleRate)
	}
	out := make([]int16, len(samples))
	for i, v := range samples {
		out[i] = quantize(v)
	}
	return out, nil
}

// DownmixInterleaved averages interleaved channels into mono.
func DownmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// DecodeFloat32LE interprets raw bytes as little-endian float32 samples.
// A trailing partial sample is dropped.
func DecodeFloat32LE(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// EncodePCM16LE serializes int16 samples as little-endian bytes.
func EncodePCM16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func quantize(v float32) int16 {
	f := float64(v)
	if f > 1.0 {
		f = 1.0
	}
	if f < -1.0 {
		f = -1.0
	}
	return int16(f * 32767)
}
