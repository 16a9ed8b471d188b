package stream

// Control is a control message sent inline with audio on a live connection.
type Control string

const (
	// ControlFinalize asks the backend to flush buffered partials into a
	// final result.
	ControlFinalize Control = "Finalize"
	// ControlKeepAlive keeps an idle connection open.
	ControlKeepAlive Control = "KeepAlive"
	// ControlCloseStream tells the backend no more audio will arrive.
	ControlCloseStream Control = "CloseStream"
)

// Message is the wire form of a control frame for backends that accept
// Deepgram-style typed JSON messages.
type Message struct {
	Type Control `json:"type"`
}
