// Package audio captures and multiplexes microphone/speaker PCM for a
// session.
package audio

// SampleRate is the fixed capture rate for all sessions.
const SampleRate = 16000

// ChannelMode governs which physical streams are captured and whether frames
// travel as a mono buffer or a (mic, speaker) pair.
type ChannelMode int

const (
	ModeMicOnly ChannelMode = iota
	ModeSpeakerOnly
	ModeMicAndSpeaker
)

// DetermineMode derives the capture mode from the onboarding flag.
// Onboarding sessions listen to playback only.
func DetermineMode(onboarding bool) ChannelMode {
	if onboarding {
		return ModeSpeakerOnly
	}
	return ModeMicAndSpeaker
}

func (m ChannelMode) UsesMic() bool     { return m == ModeMicOnly || m == ModeMicAndSpeaker }
func (m ChannelMode) UsesSpeaker() bool { return m == ModeSpeakerOnly || m == ModeMicAndSpeaker }

// Channels is the wire channel count implied by the mode.
func (m ChannelMode) Channels() uint8 {
	if m == ModeMicAndSpeaker {
		return 2
	}
	return 1
}

func (m ChannelMode) String() string {
	switch m {
	case ModeMicOnly:
		return "mic_only"
	case ModeSpeakerOnly:
		return "speaker_only"
	case ModeMicAndSpeaker:
		return "mic_and_speaker"
	default:
		return "unknown"
	}
}
