package terminal

import (
	"net/url"
	"os"
	"strings"
)

const (
	oscVSCodeCwd    = "\x1b]633;P;Cwd="
	oscITerm2Cwd    = "\x1b]1337;CurrentDir="
	oscFileURLCwd   = "\x1b]7;file://"
	oscStringTermST = "\x1b\\"
)

// parseWorkingDirectory extracts the most specific working directory hint
// from shell output: VSCode (OSC 633) > iTerm2 (OSC 1337) > OSC 7. When a
// chunk holds several hints of one kind the last wins. Only existing
// directories are returned.
func parseWorkingDirectory(output string) string {
	for _, parse := range []func(string) string{parseVSCodeCwd, parseITerm2Cwd, parseOSC7Cwd} {
		if dir := parse(output); dir != "" && isDirectory(dir) {
			return dir
		}
	}
	return ""
}

// oscPayload returns the payload of the last prefix-introduced OSC sequence
// terminated by BEL or ST. Unterminated sequences yield "".
func oscPayload(output, prefix string) string {
	start := strings.LastIndex(output, prefix)
	if start == -1 {
		return ""
	}
	rest := output[start+len(prefix):]

	end := len(rest)
	if idx := strings.IndexByte(rest, '\a'); idx != -1 {
		end = idx
	}
	if idx := strings.Index(rest, oscStringTermST); idx != -1 && idx < end {
		end = idx
	}
	if end == len(rest) {
		return ""
	}
	return rest[:end]
}

func parseVSCodeCwd(output string) string {
	return oscPayload(output, oscVSCodeCwd)
}

func parseITerm2Cwd(output string) string {
	return oscPayload(output, oscITerm2Cwd)
}

// parseOSC7Cwd handles ESC ] 7 ; file://host/path. The host part is ignored
// and the path is percent-decoded.
func parseOSC7Cwd(output string) string {
	payload := oscPayload(output, oscFileURLCwd)
	slash := strings.IndexByte(payload, '/')
	if slash == -1 {
		return ""
	}
	path := payload[slash:]
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
