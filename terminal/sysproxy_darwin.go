//go:build darwin

package terminal

import (
	"context"
	"fmt"
	"os/exec"
)

// ScutilProxyResolver reads the system proxy configuration via scutil.
type ScutilProxyResolver struct{}

func (ScutilProxyResolver) Resolve(ctx context.Context) (map[string]string, error) {
	out, err := exec.CommandContext(ctx, "scutil", "--proxy").Output()
	if err != nil {
		return nil, fmt.Errorf("scutil --proxy: %w", err)
	}
	return parseScutilProxy(string(out)), nil
}

// NewSystemProxyResolver returns the resolver for this platform.
func NewSystemProxyResolver() SystemProxyResolver {
	return ScutilProxyResolver{}
}
