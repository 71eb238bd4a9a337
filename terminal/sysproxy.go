package terminal

import (
	"bufio"
	"context"
	"net"
	"strings"
)

// SystemProxyResolver reads proxy settings from the operating system rather
// than from the environment. Resolve returns variable overrides such as
// HTTP_PROXY; an empty map means no system proxy is configured.
type SystemProxyResolver interface {
	Resolve(ctx context.Context) (map[string]string, error)
}

// parseScutilProxy converts `scutil --proxy` output into proxy variables.
// Only HTTP and HTTPS entries are derived.
func parseScutilProxy(output string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	depth := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasSuffix(line, "{") {
			depth++
			continue
		}
		if line == "}" {
			depth--
			continue
		}
		// Nested arrays such as ExceptionsList are skipped.
		if depth != 1 {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	out := make(map[string]string)
	if url := scutilProxyURL(fields, "HTTP"); url != "" {
		out["http_proxy"] = url
		out["HTTP_PROXY"] = url
	}
	if url := scutilProxyURL(fields, "HTTPS"); url != "" {
		out["https_proxy"] = url
		out["HTTPS_PROXY"] = url
	}
	return out
}

func scutilProxyURL(fields map[string]string, prefix string) string {
	if fields[prefix+"Enable"] != "1" {
		return ""
	}
	host := fields[prefix+"Proxy"]
	if host == "" {
		return ""
	}
	port := fields[prefix+"Port"]
	if port == "" {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}
