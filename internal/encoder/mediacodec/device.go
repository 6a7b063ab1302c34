// Package mediacodec adapts hardware video encoders that speak the Android
// MediaCodec buffer-exchange protocol: raw frames go into dequeued input
// buffers, compressed packets come back out of output buffers tagged with
// flags and a microsecond timestamp.
package mediacodec

import (
	"errors"
	"time"
)

// Buffer flags, matching the MediaCodec constants.
type Flags uint32

const (
	FlagKeyframe    Flags = 1 << 0
	FlagCodecConfig Flags = 1 << 1
	FlagEndOfStream Flags = 1 << 2
)

// BufferInfo describes one output buffer.
type BufferInfo struct {
	Offset    int
	Size      int
	PTSMicros int64
	Flags     Flags
}

// Format is the buffer geometry the device settled on. Stride and
// SliceHeight can exceed the frame size; the adapter pads rows and planes
// to match.
type Format struct {
	Width       int
	Height      int
	Stride      int
	SliceHeight int
}

// ErrTryAgain is returned by dequeue calls when no buffer became available
// within the timeout.
var ErrTryAgain = errors.New("mediacodec: no buffer available")

// Device is one configured hardware codec instance.
type Device interface {
	// Start makes the device accept buffers.
	Start() error
	// Stop flushes and halts the device. The instance cannot be reused.
	Stop() error

	// InputFormat reports the geometry input buffers must be laid out in.
	InputFormat() Format

	// DequeueInput claims an input buffer, returning its index and
	// backing storage. ErrTryAgain on timeout.
	DequeueInput(timeout time.Duration) (index int, buf []byte, err error)
	// QueueInput submits size bytes of a claimed buffer.
	QueueInput(index, size int, ptsMicros int64, flags Flags) error

	// DequeueOutput claims the next output buffer. ErrTryAgain on
	// timeout.
	DequeueOutput(timeout time.Duration) (index int, buf []byte, info BufferInfo, err error)
	// ReleaseOutput returns an output buffer to the device.
	ReleaseOutput(index int) error
}

// Opener creates a device for a MIME type. Installed by platform glue at
// startup; when no opener is installed the plugin does not register.
type Opener func(mime string, width, height, fpsNum, fpsDen, bitrate, gopFrames int) (Device, error)
