// Package rtl handles right-to-left text in extracted cell values.
// Extracted Hebrew and Arabic text arrives in logical order; for the
// output artifact it is reshaped for character joining (Arabic) and then
// reordered with the bidirectional algorithm so it renders in correct
// visual order.
package rtl

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// ContainsRTL reports whether the string contains at least one
// right-to-left script codepoint (Hebrew, Arabic, Syriac, Thaana, N'Ko).
func ContainsRTL(s string) bool {
	for _, r := range s {
		if IsRTLRune(r) {
			return true
		}
	}
	return false
}

// IsRTLRune reports whether r belongs to a right-to-left script block.
func IsRTLRune(r rune) bool {
	switch {
	case r >= 0x0590 && r <= 0x05FF: // Hebrew
		return true
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case r >= 0x0700 && r <= 0x074F: // Syriac
		return true
	case r >= 0x0750 && r <= 0x077F: // Arabic Supplement
		return true
	case r >= 0x0780 && r <= 0x07BF: // Thaana
		return true
	case r >= 0x07C0 && r <= 0x07FF: // N'Ko
		return true
	case r >= 0x08A0 && r <= 0x08FF: // Arabic Extended-A
		return true
	case r >= 0xFB1D && r <= 0xFB4F: // Hebrew presentation forms
		return true
	case r >= 0xFB50 && r <= 0xFDFF: // Arabic presentation forms A
		return true
	case r >= 0xFE70 && r <= 0xFEFF: // Arabic presentation forms B
		return true
	}
	return false
}

// Fix prepares mixed-direction text for visual rendering: Arabic letters
// are substituted with their contextual presentation forms, then the
// whole string is reordered with the Unicode bidirectional algorithm.
// Text without RTL codepoints is returned unchanged.
func Fix(s string) string {
	if s == "" || !ContainsRTL(s) {
		return s
	}
	return Reorder(Reshape(s))
}

// Reorder applies the Unicode bidirectional algorithm and returns the
// string in visual order. On a bidi resolution error the input is
// returned unchanged.
func Reorder(s string) string {
	p := &bidi.Paragraph{}
	p.SetString(s)

	ordering, err := p.Order()
	if err != nil {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		text := run.String()
		if run.Direction() == bidi.RightToLeft {
			text = reverseRunes(text)
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// joining classes for Arabic letters
type joining int

const (
	joinNone  joining = iota // does not connect
	joinRight                // connects to the preceding letter only
	joinDual                 // connects on both sides
)

// contextual holds the presentation forms of one letter:
// isolated, final, initial, medial. Right-joining letters only carry
// isolated and final forms.
type contextual struct {
	class    joining
	isolated rune
	final    rune
	initial  rune
	medial   rune
}

// arabicForms maps base Arabic letters to their Presentation Forms-B
// codepoints.
var arabicForms = map[rune]contextual{
	'ء': {joinNone, 'ﺀ', 'ﺀ', 0, 0},           // hamza
	'آ': {joinRight, 'ﺁ', 'ﺂ', 0, 0},          // alef madda
	'أ': {joinRight, 'ﺃ', 'ﺄ', 0, 0},          // alef hamza above
	'ؤ': {joinRight, 'ﺅ', 'ﺆ', 0, 0},          // waw hamza
	'إ': {joinRight, 'ﺇ', 'ﺈ', 0, 0},          // alef hamza below
	'ئ': {joinDual, 'ﺉ', 'ﺊ', 'ﺋ', 'ﺌ'}, // yeh hamza
	'ا': {joinRight, 'ﺍ', 'ﺎ', 0, 0},          // alef
	'ب': {joinDual, 'ﺏ', 'ﺐ', 'ﺑ', 'ﺒ'}, // beh
	'ة': {joinRight, 'ﺓ', 'ﺔ', 0, 0},          // teh marbuta
	'ت': {joinDual, 'ﺕ', 'ﺖ', 'ﺗ', 'ﺘ'}, // teh
	'ث': {joinDual, 'ﺙ', 'ﺚ', 'ﺛ', 'ﺜ'}, // theh
	'ج': {joinDual, 'ﺝ', 'ﺞ', 'ﺟ', 'ﺠ'}, // jeem
	'ح': {joinDual, 'ﺡ', 'ﺢ', 'ﺣ', 'ﺤ'}, // hah
	'خ': {joinDual, 'ﺥ', 'ﺦ', 'ﺧ', 'ﺨ'}, // khah
	'د': {joinRight, 'ﺩ', 'ﺪ', 0, 0},          // dal
	'ذ': {joinRight, 'ﺫ', 'ﺬ', 0, 0},          // thal
	'ر': {joinRight, 'ﺭ', 'ﺮ', 0, 0},          // reh
	'ز': {joinRight, 'ﺯ', 'ﺰ', 0, 0},          // zain
	'س': {joinDual, 'ﺱ', 'ﺲ', 'ﺳ', 'ﺴ'}, // seen
	'ش': {joinDual, 'ﺵ', 'ﺶ', 'ﺷ', 'ﺸ'}, // sheen
	'ص': {joinDual, 'ﺹ', 'ﺺ', 'ﺻ', 'ﺼ'}, // sad
	'ض': {joinDual, 'ﺽ', 'ﺾ', 'ﺿ', 'ﻀ'}, // dad
	'ط': {joinDual, 'ﻁ', 'ﻂ', 'ﻃ', 'ﻄ'}, // tah
	'ظ': {joinDual, 'ﻅ', 'ﻆ', 'ﻇ', 'ﻈ'}, // zah
	'ع': {joinDual, 'ﻉ', 'ﻊ', 'ﻋ', 'ﻌ'}, // ain
	'غ': {joinDual, 'ﻍ', 'ﻎ', 'ﻏ', 'ﻐ'}, // ghain
	'ف': {joinDual, 'ﻑ', 'ﻒ', 'ﻓ', 'ﻔ'}, // feh
	'ق': {joinDual, 'ﻕ', 'ﻖ', 'ﻗ', 'ﻘ'}, // qaf
	'ك': {joinDual, 'ﻙ', 'ﻚ', 'ﻛ', 'ﻜ'}, // kaf
	'ل': {joinDual, 'ﻝ', 'ﻞ', 'ﻟ', 'ﻠ'}, // lam
	'م': {joinDual, 'ﻡ', 'ﻢ', 'ﻣ', 'ﻤ'}, // meem
	'ن': {joinDual, 'ﻥ', 'ﻦ', 'ﻧ', 'ﻨ'}, // noon
	'ه': {joinDual, 'ﻩ', 'ﻪ', 'ﻫ', 'ﻬ'}, // heh
	'و': {joinRight, 'ﻭ', 'ﻮ', 0, 0},          // waw
	'ى': {joinRight, 'ﻯ', 'ﻰ', 0, 0},          // alef maksura
	'ي': {joinDual, 'ﻱ', 'ﻲ', 'ﻳ', 'ﻴ'}, // yeh
}

// lamAlef maps the alef variants that form a lam-alef ligature to their
// isolated and final ligature codepoints.
var lamAlef = map[rune][2]rune{
	'آ': {'ﻵ', 'ﻶ'},
	'أ': {'ﻷ', 'ﻸ'},
	'إ': {'ﻹ', 'ﻺ'},
	'ا': {'ﻻ', 'ﻼ'},
}

// Reshape substitutes base Arabic letters with their contextual
// presentation forms so joined letters render connected. Harakat
// (combining marks) are transparent: they pass through unchanged and do
// not interrupt joining. Non-Arabic text is left untouched.
func Reshape(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))

	// prevJoins tracks whether the previous shaped letter connects
	// forward (was shaped initial or medial).
	prevJoins := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if isTransparent(r) {
			out = append(out, r)
			continue
		}

		form, ok := arabicForms[r]
		if !ok {
			out = append(out, r)
			prevJoins = false
			continue
		}

		// Lam-alef ligature replaces both letters with one codepoint.
		if r == 'ل' {
			if next, found := nextLetter(runes, i); found {
				if lig, isLig := lamAlef[runes[next]]; isLig {
					if prevJoins {
						out = append(out, lig[1])
					} else {
						out = append(out, lig[0])
					}
					// Carry any transparent marks between the pair.
					out = append(out, runes[i+1:next]...)
					i = next
					prevJoins = false
					continue
				}
			}
		}

		joinsNext := false
		if form.class == joinDual {
			if next, found := nextLetter(runes, i); found {
				if nextForm, isLetter := arabicForms[runes[next]]; isLetter && nextForm.class != joinNone {
					joinsNext = true
				}
			}
		}

		switch {
		case prevJoins && joinsNext:
			out = append(out, form.medial)
		case prevJoins:
			out = append(out, form.final)
		case joinsNext:
			out = append(out, form.initial)
		default:
			out = append(out, form.isolated)
		}

		prevJoins = joinsNext
	}

	return string(out)
}

// nextLetter returns the index of the next non-transparent rune.
func nextLetter(runes []rune, i int) (int, bool) {
	for j := i + 1; j < len(runes); j++ {
		if !isTransparent(runes[j]) {
			return j, true
		}
	}
	return 0, false
}

// isTransparent reports whether r is an Arabic combining mark that does
// not participate in joining.
func isTransparent(r rune) bool {
	if r >= 0x064B && r <= 0x065F {
		return true
	}
	if r == 0x0670 {
		return true
	}
	return unicode.Is(unicode.Mn, r) && r >= 0x0591 && r <= 0x05C7 // Hebrew points
}
