package server

// stripReplayQueries removes terminal queries and query responses from
// recorded output. Replaying them to a fresh emulator makes it answer again,
// and the answers land on the shell's stdin as garbage.
func stripReplayQueries(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] == 0x1b && i+1 < len(data) {
			switch data[i+1] {
			case '[':
				if end, ok := csiQueryEnd(data, i+2); ok {
					i = end
					continue
				}
			case ']':
				if end, ok := oscColorEnd(data, i+2); ok {
					i = end
					continue
				}
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}

// csiQueryEnd parses the CSI sequence whose parameters begin at start and
// reports whether it is one to drop, with the offset just past it.
func csiQueryEnd(data []byte, start int) (int, bool) {
	j := start
	var prefix byte
	if j < len(data) && (data[j] == '?' || data[j] == '>') {
		prefix = data[j]
		j++
	}

	paramStart := j
	for j < len(data) && (isDigit(data[j]) || data[j] == ';') {
		j++
	}
	params := string(data[paramStart:j])

	dollar := false
	if j < len(data) && data[j] == '$' {
		dollar = true
		j++
	}
	if j >= len(data) {
		return 0, false
	}

	final := data[j]
	var drop bool
	switch {
	case dollar:
		// DECRQM
		drop = prefix == '?' && final == 'p'
	case final == 'c':
		// DA1/DA2 queries and their responses
		drop = true
	case final == 'R':
		// cursor position report
		drop = prefix == 0 && params != ""
	case final == 'n':
		drop = prefix == 0 && params == "6"
	case final == 'u':
		// kitty keyboard protocol query
		drop = prefix == '?'
	case final == 'q':
		// XTVERSION
		drop = prefix == '>'
	case final == 'h' || final == 'l':
		// focus reporting toggles
		drop = prefix == '?' && params == "1004"
	}
	return j + 1, drop
}

// oscColorEnd matches OSC 10/11 (foreground/background colour) queries and
// reports. An unterminated sequence runs to the end of data.
func oscColorEnd(data []byte, start int) (int, bool) {
	j := start
	for j < len(data) && data[j] == ' ' {
		j++
	}
	codeStart := j
	for j < len(data) && isDigit(data[j]) {
		j++
	}
	code := string(data[codeStart:j])
	if (code != "10" && code != "11") || j >= len(data) || data[j] != ';' {
		return 0, false
	}

	for k := j + 1; k < len(data); k++ {
		if data[k] == 0x07 {
			return k + 1, true
		}
		if data[k] == 0x1b && k+1 < len(data) && data[k+1] == '\\' {
			return k + 2, true
		}
	}
	return len(data), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
