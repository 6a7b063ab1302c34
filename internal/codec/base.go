package codec

import (
	"sync"

	"github.com/smazurov/camcorder/internal/media"
)

// Lifecycle implements the State/SetState contract shared by all adapters.
// Concrete adapters install Start and Stop hooks; Start runs on the first
// transition out of Stopped, Stop runs on the transition back to Stopped.
type Lifecycle struct {
	mu    sync.Mutex
	state State

	// Start prepares the adapter for encoding or writing. Returning
	// false rejects the transition and the adapter stays Stopped.
	Start func() bool
	// Stop releases everything Start acquired.
	Stop func()
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetState drives the lifecycle. Same-state transitions are rejected.
func (l *Lifecycle) SetState(state State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if state == l.state {
		return false
	}
	switch {
	case l.state == StateStopped:
		if l.Start != nil && !l.Start() {
			return false
		}
	case state == StateStopped:
		if l.Stop != nil {
			l.Stop()
		}
	}
	l.state = state
	return true
}

// Running reports whether the adapter currently consumes input.
func (l *Lifecycle) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateRunning
}

// EncoderBase carries the bookkeeping every encoder adapter needs: the
// advertised codec table, the active selection, bitrate, gap filling, the
// packet sink and the encoded time counter. Embed it alongside Lifecycle
// and OptionSet.
type EncoderBase struct {
	OptionSet

	table map[string]string // codec -> description
	order []string

	mu       sync.Mutex
	codec    string
	bitrate  int
	fillGaps bool
	sink     PacketFunc
	encoded  int64
}

// DeclareCodecs installs the codec table in advertisement order and selects
// the first entry.
func (b *EncoderBase) DeclareCodecs(codecs []Option) {
	b.table = make(map[string]string, len(codecs))
	b.order = make([]string, 0, len(codecs))
	for _, c := range codecs {
		b.table[c.Name] = c.Description
		b.order = append(b.order, c.Name)
	}
	if len(b.order) > 0 {
		b.codec = b.order[0]
	}
}

func (b *EncoderBase) Codecs() []string {
	return b.order
}

func (b *EncoderBase) CodecDescription(name string) string {
	return b.table[name]
}

func (b *EncoderBase) SetCodec(name string) bool {
	if _, ok := b.table[name]; !ok {
		return false
	}
	b.mu.Lock()
	b.codec = name
	b.mu.Unlock()
	return true
}

func (b *EncoderBase) Codec() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codec
}

func (b *EncoderBase) Bitrate() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bitrate
}

func (b *EncoderBase) SetBitrate(bitrate int) {
	b.mu.Lock()
	b.bitrate = bitrate
	b.mu.Unlock()
}

func (b *EncoderBase) SetFillGaps(fill bool) {
	b.mu.Lock()
	b.fillGaps = fill
	b.mu.Unlock()
}

func (b *EncoderBase) FillGaps() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fillGaps
}

func (b *EncoderBase) SetSink(sink PacketFunc) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Emit delivers a packet to the installed sink, if any.
func (b *EncoderBase) Emit(pkt media.Packet) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink(pkt)
	}
}

func (b *EncoderBase) EncodedTimePts() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encoded
}

// RecordEncoded advances the encoded time counter to pts when it moves
// forward. ResetEncoded clears it at the start of a recording.
func (b *EncoderBase) RecordEncoded(pts int64) {
	b.mu.Lock()
	if pts > b.encoded {
		b.encoded = pts
	}
	b.mu.Unlock()
}

func (b *EncoderBase) ResetEncoded() {
	b.mu.Lock()
	b.encoded = 0
	b.mu.Unlock()
}
