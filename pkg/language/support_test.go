package language

import "testing"

func TestMinPicksWorseTier(t *testing.T) {
	a := Supported(QualityExcellent)
	b := Supported(QualityModerate)
	if got := a.Min(b); got.Quality() != QualityModerate {
		t.Fatalf("expected moderate, got %s", got)
	}
	if got := b.Min(a); got.Quality() != QualityModerate {
		t.Fatalf("min not symmetric: %s", got)
	}
}

func TestNotSupportedDominates(t *testing.T) {
	a := Supported(QualityExcellent)
	if got := a.Min(NotSupported()); got.IsSupported() {
		t.Fatalf("expected not supported, got %s", got)
	}
	if got := NotSupported().Min(a); got.IsSupported() {
		t.Fatalf("expected not supported, got %s", got)
	}
}

func TestReduceIsWorstOfSet(t *testing.T) {
	table := map[string]Support{
		"en": Supported(QualityExcellent),
		"ko": Supported(QualityGood),
		"th": NotSupported(),
	}
	classify := func(lang string) Support { return table[lang] }

	if got := Reduce([]string{"en", "ko"}, classify); got.Quality() != QualityGood {
		t.Fatalf("expected good, got %s", got)
	}
	if got := Reduce([]string{"en", "ko", "th"}, classify); got.IsSupported() {
		t.Fatalf("one unsupported language must dominate, got %s", got)
	}
	// empty request behaves as English only
	if got := Reduce(nil, classify); got.Quality() != QualityExcellent {
		t.Fatalf("expected english default, got %s", got)
	}
}

func TestNormalizeStripsRegion(t *testing.T) {
	if Normalize("en-US") != "en" || Normalize("zh_Hans") != "zh" || Normalize(" KO ") != "ko" {
		t.Fatalf("normalize failed")
	}
}

func TestPickPrefersFirstMatch(t *testing.T) {
	supported := map[string]Quality{"en": QualityHigh, "de": QualityGood}
	if got := Pick([]string{"fr", "de", "en"}, supported); got != "de" {
		t.Fatalf("expected de, got %s", got)
	}
	if got := Pick(nil, supported); got != "en" {
		t.Fatalf("expected en default, got %s", got)
	}
	if got := Pick([]string{"ja"}, supported); got != "en" {
		t.Fatalf("expected en fallback, got %s", got)
	}
}
