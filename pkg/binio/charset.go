package binio

// Strings in the legacy layout are one byte per character. The interpreter
// that produced them had no notion of encodings, so bytes map to the first 256
// Unicode code points (Latin-1).

// ToUnicode maps a stored byte to the character it represents.
func ToUnicode(b byte) rune {
	return rune(b)
}

// FromUnicode maps a character to its stored byte. Characters above U+00FF
// cannot be represented and are truncated to their low byte, matching the
// files the editor already wrote.
func FromUnicode(r rune) byte {
	return byte(r)
}
