package provider

import (
	"log/slog"
	"sync"

	"github.com/murmurlabs/verbatim/pkg/logging"
	"github.com/murmurlabs/verbatim/pkg/stream"
	"github.com/murmurlabs/verbatim/pkg/wsc"
)

// WireCodec translates between a backend's wire frames and the normalized
// model. One codec instance serves one connection, so it may keep state
// (e.g. to tag the flush that answers a finalize request).
type WireCodec interface {
	// EncodeControl renders a control message in the backend's native form,
	// or reports false when the backend has no equivalent.
	EncodeControl(c stream.Control) ([]byte, bool)
	// Decode translates one inbound frame into zero or more events.
	Decode(data []byte) ([]stream.Event, error)
}

// NewLiveStream wraps an open connection with a codec. The returned stream
// pumps decoded events in receipt order and emits exactly one terminal event
// (EndedEvent or ErrorEvent) before closing its channel.
func NewLiveStream(name Name, conn *wsc.Conn, codec WireCodec, finalizeCount int) LiveStream {
	if finalizeCount < 1 {
		finalizeCount = 1
	}
	ls := &liveStream{
		name:          name,
		conn:          conn,
		codec:         codec,
		events:        make(chan stream.Event, 64),
		done:          make(chan struct{}),
		finalizeCount: finalizeCount,
		logger:        logging.NewComponentLogger(nil, string(name)+"_live"),
	}
	go ls.pump()
	return ls
}

type liveStream struct {
	name          Name
	conn          *wsc.Conn
	codec         WireCodec
	events        chan stream.Event
	finalizeCount int
	logger        *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// pump forwards decoded events until the connection ends or Close fires.
// The done branch keeps an abandoned stream from blocking on a consumer
// that stopped reading.
func (l *liveStream) pump() {
	defer close(l.events)
	for msg := range l.conn.Messages() {
		evs, err := l.codec.Decode(msg.Data)
		if err != nil {
			l.logger.Warn("undecodable frame", slog.String("error", err.Error()))
			continue
		}
		for _, ev := range evs {
			select {
			case l.events <- ev:
			case <-l.done:
				return
			}
		}
	}
	var terminal stream.Event = stream.EndedEvent{}
	if err := l.conn.Err(); err != nil {
		terminal = stream.ErrorEvent{Message: err.Error()}
	}
	select {
	case l.events <- terminal:
	case <-l.done:
	}
}

func (l *liveStream) SendAudio(pcm []byte) error {
	return l.conn.WriteBinary(pcm)
}

func (l *liveStream) SendControl(c stream.Control) error {
	payload, ok := l.codec.EncodeControl(c)
	if !ok {
		return nil
	}
	return l.conn.WriteText(payload)
}

func (l *liveStream) Events() <-chan stream.Event { return l.events }

func (l *liveStream) ExpectedFinalizeCount() int { return l.finalizeCount }

func (l *liveStream) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return l.conn.Close()
}
