package provider

import (
	"fmt"
	"sync"
)

var (
	regMu    sync.RWMutex
	registry = make(map[Name]Adapter)
)

// Register installs an adapter for its name. Called from each adapter
// package's init; a second registration for the same name panics because it
// indicates a wiring mistake, never runtime input.
func Register(a Adapter) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[a.Name()]; dup {
		panic(fmt.Sprintf("provider: duplicate registration for %s", a.Name()))
	}
	registry[a.Name()] = a
}

// Get returns the adapter registered for the given name.
func Get(n Name) (Adapter, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	a, ok := registry[n]
	return a, ok
}

// Live returns the adapter when it supports a realtime connection.
func Live(n Name) (LiveStreamer, bool) {
	a, ok := Get(n)
	if !ok {
		return nil, false
	}
	ls, ok := a.(LiveStreamer)
	return ls, ok
}

// Batch returns the adapter when it supports one-shot file transcription.
func Batch(n Name) (FileTranscriber, bool) {
	a, ok := Get(n)
	if !ok {
		return nil, false
	}
	ft, ok := a.(FileTranscriber)
	return ft, ok
}

// Callback returns the adapter when it only supports submit-then-webhook.
func Callback(n Name) (CallbackTranscriber, bool) {
	a, ok := Get(n)
	if !ok {
		return nil, false
	}
	ct, ok := a.(CallbackTranscriber)
	return ct, ok
}

// PickLive walks the provider set in preference order and returns the first
// live-capable adapter that serves every requested language.
func PickLive(langs []string) (LiveStreamer, bool) {
	for _, n := range All() {
		ls, ok := Live(n)
		if !ok {
			continue
		}
		if IsSupportedLive(ls, langs) {
			return ls, true
		}
	}
	return nil, false
}
