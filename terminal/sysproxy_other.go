//go:build !darwin

package terminal

import "context"

type noSystemProxy struct{}

func (noSystemProxy) Resolve(context.Context) (map[string]string, error) {
	return nil, nil
}

// NewSystemProxyResolver returns the resolver for this platform. Only macOS
// exposes a system-wide proxy setting; elsewhere it resolves to nothing.
func NewSystemProxyResolver() SystemProxyResolver {
	return noSystemProxy{}
}
