package store

// TextLength counts s in UTF-16 code units, the unit clients measure message length in.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
			continue
		}
		n++
	}
	return n
}
