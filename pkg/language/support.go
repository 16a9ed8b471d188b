// Package language classifies how well a provider serves a set of requested
// languages. Multi-language requests reduce to the worst per-language tier;
// one unsupported language makes the whole request unsupported.
package language

import "strings"

// Quality is an ordered tier of transcription quality for one language.
type Quality int

const (
	QualityNoData Quality = iota
	QualityModerate
	QualityGood
	QualityHigh
	QualityExcellent
)

func (q Quality) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityHigh:
		return "high"
	case QualityGood:
		return "good"
	case QualityModerate:
		return "moderate"
	default:
		return "no_data"
	}
}

// Support is either NotSupported or Supported with a quality tier.
type Support struct {
	supported bool
	quality   Quality
}

// Supported builds a supported classification at the given tier.
func Supported(q Quality) Support {
	return Support{supported: true, quality: q}
}

// NotSupported is the dominated-by-nothing bottom of the order.
func NotSupported() Support {
	return Support{}
}

func (s Support) IsSupported() bool { return s.supported }

// Quality returns the tier; only meaningful when IsSupported.
func (s Support) Quality() Quality { return s.quality }

func (s Support) String() string {
	if !s.supported {
		return "not_supported"
	}
	return s.quality.String()
}

// Min returns the worse of two classifications. NotSupported dominates.
func (s Support) Min(o Support) Support {
	if !s.supported || !o.supported {
		return NotSupported()
	}
	if o.quality < s.quality {
		return o
	}
	return s
}

// Reduce classifies a requested language set by min-reducing per-language
// results. An empty request is treated as English only.
func Reduce(langs []string, classify func(lang string) Support) Support {
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	out := classify(Normalize(langs[0]))
	for _, lang := range langs[1:] {
		out = out.Min(classify(Normalize(lang)))
	}
	return out
}

// Normalize lowers a BCP-47 code to its primary subtag ("en-US" -> "en").
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// Pick returns the first requested language present in the supported set,
// defaulting to English when the list is empty or nothing matches. This is
// the selection rule for models without native multi-language streaming.
func Pick(langs []string, supported map[string]Quality) string {
	for _, lang := range langs {
		if _, ok := supported[Normalize(lang)]; ok {
			return Normalize(lang)
		}
	}
	return "en"
}
