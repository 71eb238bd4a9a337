package terminal

import (
	"os"
	"strings"
)

// proxyEnvKeys lists the variables captured at startup. Both spellings are
// tracked because tools disagree on which one wins.
var proxyEnvKeys = []string{
	"http_proxy", "HTTP_PROXY",
	"https_proxy", "HTTPS_PROXY",
	"all_proxy", "ALL_PROXY",
	"no_proxy", "NO_PROXY",
}

// PreservedVar is one captured variable. Present is false when the variable
// was unset; such entries are removed from the child environment.
type PreservedVar struct {
	Name    string
	Value   string
	Present bool
}

// PreservedEnv is an ordered snapshot of proxy-related variables applied
// verbatim to every spawned shell.
type PreservedEnv []PreservedVar

// CaptureProxyEnv snapshots the proxy variables through lookup, usually
// os.LookupEnv.
func CaptureProxyEnv(lookup func(string) (string, bool)) PreservedEnv {
	env := make(PreservedEnv, 0, len(proxyEnvKeys))
	for _, key := range proxyEnvKeys {
		value, ok := lookup(key)
		env = append(env, PreservedVar{Name: key, Value: value, Present: ok})
	}
	return env
}

// Lookup returns the captured value for name.
func (e PreservedEnv) Lookup(name string) (string, bool) {
	for _, v := range e {
		if v.Name == name {
			return v.Value, v.Present
		}
	}
	return "", false
}

// WithOverrides returns a copy where every key in overrides is set. Keys not
// already tracked are appended.
func (e PreservedEnv) WithOverrides(overrides map[string]string) PreservedEnv {
	out := make(PreservedEnv, len(e))
	copy(out, e)
	for _, key := range proxyEnvKeys {
		value, ok := overrides[key]
		if !ok {
			continue
		}
		replaced := false
		for i := range out {
			if out[i].Name == key {
				out[i] = PreservedVar{Name: key, Value: value, Present: true}
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, PreservedVar{Name: key, Value: value, Present: true})
		}
	}
	return out
}

// envBuilder is an ordered KEY=VALUE set. Later Set calls replace earlier
// values in place so the resulting slice has no duplicates.
type envBuilder struct {
	keys   []string
	values map[string]string
}

func newEnvBuilder(base []string) *envBuilder {
	b := &envBuilder{values: make(map[string]string, len(base))}
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		b.Set(key, value)
	}
	return b
}

func (b *envBuilder) Set(key, value string) {
	if _, exists := b.values[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

func (b *envBuilder) Unset(key string) {
	if _, exists := b.values[key]; !exists {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

func (b *envBuilder) Get(key string) (string, bool) {
	value, ok := b.values[key]
	return value, ok
}

func (b *envBuilder) ApplyPreserved(env PreservedEnv) {
	for _, v := range env {
		if v.Present {
			b.Set(v.Name, v.Value)
		} else {
			b.Unset(v.Name)
		}
	}
}

func (b *envBuilder) Environ() []string {
	out := make([]string, 0, len(b.keys))
	for _, key := range b.keys {
		out = append(out, key+"="+b.values[key])
	}
	return out
}

// processEnviron is the base environment for children.
var processEnviron = os.Environ
