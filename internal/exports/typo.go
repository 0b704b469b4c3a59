package exports

import "unicode/utf8"

// TypoDetector suggests a likely intended name for an unresolved export
// reference, adapted from the teacher's one-character-edit-distance
// detector (helpers.TypoDetector) for use against a module's provided
// export names.
type TypoDetector struct {
	oneCharTypos map[string]string
}

// NewTypoDetector builds a detector over the given valid names, indexing
// every name-with-one-character-removed combination.
func NewTypoDetector(valid []string) TypoDetector {
	d := TypoDetector{oneCharTypos: make(map[string]string)}
	for _, correct := range valid {
		if len(correct) > 3 {
			for i, ch := range correct {
				d.oneCharTypos[correct[:i]+correct[i+utf8.RuneLen(ch):]] = correct
			}
		}
	}
	return d
}

// MaybeCorrect returns a suggested correction for typo, checking both a
// single deleted character and a single misplaced character.
func (d TypoDetector) MaybeCorrect(typo string) (string, bool) {
	if corrected, ok := d.oneCharTypos[typo]; ok {
		return corrected, true
	}
	for i, ch := range typo {
		if corrected, ok := d.oneCharTypos[typo[:i]+typo[i+utf8.RuneLen(ch):]]; ok {
			return corrected, true
		}
	}
	return "", false
}

// SuggestFor builds a one-off TypoDetector from a module's provided export
// names and returns a suggestion for an unresolved reference, if any.
func (ei *ExportsInfo) SuggestFor(unresolved string) (string, bool) {
	return NewTypoDetector(ei.ProvidedNames()).MaybeCorrect(unresolved)
}
