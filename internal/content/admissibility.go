package content

import (
	"strings"
	"unicode"
)

const (
	binarySampleSize  = 8 * 1024
	nonCodeSampleSize = 1024
	densityWindow     = 200

	binaryThreshold      = 0.30
	hexThreshold         = 0.80
	punctuationThreshold = 0.50

	base64MinRun       = 100
	hexMinSample       = 64
	minifiedLineLength = 1000
)

const (
	base64Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
	hexAlphabet      = "0123456789abcdefABCDEF \n\r"
	codePunctuation  = " \n\r\t.,;:!?()[]{}\"'-_=+/*"
	binaryWhitespace = "\t\n\r\f\v"
)

// CheckAdmissible reports why text cannot be analyzed, or Admissible.
// maxBytes <= 0 disables the size cap.
func CheckAdmissible(text *string, maxBytes int) Rejection {
	if text == nil || strings.TrimSpace(*text) == "" {
		return RejectEmpty
	}
	s := *text
	if maxBytes > 0 && len(s) > maxBytes {
		return RejectTooLarge
	}
	if strings.IndexByte(s, 0) >= 0 {
		return RejectNulByte
	}
	if IsLikelyBinary(s) {
		return RejectBinary
	}
	return LooksNonCode(s)
}

// IsLikelyBinary reports whether text looks like binary data: any NUL byte,
// or more than 30% control characters in the first 8KB.
func IsLikelyBinary(text string) bool {
	if text == "" {
		return false
	}
	if strings.IndexByte(text, 0) >= 0 {
		return true
	}

	sample := prefix(text, binarySampleSize)
	control := 0
	for i := 0; i < len(sample); i++ {
		c := sample[i]
		if c < 32 && strings.IndexByte(binaryWhitespace, c) < 0 {
			control++
		}
	}
	return float64(control)/float64(len(sample)) > binaryThreshold
}

// LooksNonCode checks a 1KB prefix for encoded, dumped or minified data
func LooksNonCode(text string) Rejection {
	sample := prefix(text, nonCodeSampleSize)
	if sample == "" {
		return Admissible
	}

	if looksBase64(sample) {
		return RejectBase64
	}

	window := []rune(sample)
	if len(window) > densityWindow {
		window = window[:densityWindow]
	}

	if len(sample) >= hexMinSample && ratio(window, func(r rune) bool {
		return strings.ContainsRune(hexAlphabet, r)
	}) > hexThreshold {
		return RejectHexDump
	}

	for _, line := range strings.Split(sample, "\n") {
		if len(line) > minifiedLineLength {
			return RejectMinified
		}
	}

	if ratio(window, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune(codePunctuation, r)
	}) > punctuationThreshold {
		return RejectPunctuation
	}

	return Admissible
}

func looksBase64(sample string) bool {
	joined := strings.NewReplacer("\r", "", "\n", "").Replace(sample)
	if len(joined) <= base64MinRun {
		return false
	}
	for i := 0; i < len(joined); i++ {
		if strings.IndexByte(base64Alphabet, joined[i]) < 0 {
			return false
		}
	}
	return true
}

func ratio(window []rune, match func(rune) bool) float64 {
	if len(window) == 0 {
		return 0
	}
	n := 0
	for _, r := range window {
		if match(r) {
			n++
		}
	}
	return float64(n) / float64(len(window))
}

// prefix cuts s to at most n bytes without splitting a UTF-8 sequence
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
