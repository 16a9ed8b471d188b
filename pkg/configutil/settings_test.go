package configutil

import (
	"testing"
	"time"
)

func TestDecodeSettingsNormalizesKeys(t *testing.T) {
	var out struct {
		SampleRate  int           `mapstructure:"sample_rate"`
		ReadTimeout time.Duration `mapstructure:"read_timeout"`
	}
	in := map[string]any{
		"Sample-Rate":  "16000",
		"read_timeout": "5s",
	}
	if err := DecodeSettings(in, &out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if out.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", out.SampleRate)
	}
	if out.ReadTimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", out.ReadTimeout)
	}
}

func TestDurationValueFallback(t *testing.T) {
	if got := DurationValue(0, 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := DurationValue(time.Second, 5*time.Second); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
}
