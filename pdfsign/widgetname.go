package pdfsign

import "math/rand"

const widgetNameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// WidgetNameSource mints the random suffix appended to a signature
// widget's /T entry. Signature preparation is otherwise fully deterministic
// (spec §5), so tests seed this to make the suffix reproducible too.
type WidgetNameSource interface {
	Next() string
}

// randWidgetNameSource is the default WidgetNameSource, backed by a seeded
// math/rand.Rand. No example in the corpus ships a seedable-RNG dependency,
// so this stays on the standard library (see DESIGN.md).
type randWidgetNameSource struct {
	rng *rand.Rand
}

// NewWidgetNameSource returns a WidgetNameSource seeded with seed. The same
// seed always produces the same sequence of names.
func NewWidgetNameSource(seed int64) WidgetNameSource {
	return &randWidgetNameSource{rng: rand.New(rand.NewSource(seed))}
}

// Next returns "Signature" followed by 8 random alphanumeric characters, as
// spec.md §4.E step 5 names the field.
func (s *randWidgetNameSource) Next() string {
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = widgetNameAlphabet[s.rng.Intn(len(widgetNameAlphabet))]
	}
	return widgetNamePrefix + string(suffix)
}
