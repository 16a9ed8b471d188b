package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonSTTConnect  ReasonCode = "stt_connect"
	ReasonSTTAuth     ReasonCode = "stt_auth"
	ReasonSTTSend     ReasonCode = "stt_send"
	ReasonSTTTimeout  ReasonCode = "stt_timeout"
	ReasonSTTStream   ReasonCode = "stt_stream"
	ReasonSTTLanguage ReasonCode = "stt_language"

	ReasonAudioDevice  ReasonCode = "audio_device"
	ReasonAudioCapture ReasonCode = "audio_capture"

	ReasonSessionActive   ReasonCode = "session_already_active"
	ReasonSessionInactive ReasonCode = "session_not_active"

	ReasonJobSubmit    ReasonCode = "job_submit"
	ReasonJobStore     ReasonCode = "job_store"
	ReasonJobNotFound  ReasonCode = "job_not_found"
	ReasonJobConfig    ReasonCode = "job_config"
	ReasonJobSecret    ReasonCode = "job_bad_secret"
	ReasonJobSignedURL ReasonCode = "job_signed_url"

	ReasonProviderStatus ReasonCode = "provider_unexpected_status"
)
