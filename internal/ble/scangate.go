package ble

import "sync"

// scanGate tracks whether a platform scan is running and holds a StopScan
// that arrived before the platform could accept it. A held stop belongs to
// the next scan session only.
type scanGate struct {
	mu       sync.Mutex
	scanning bool
	pending  bool
}

func (g *scanGate) begin() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scanning = true
}

// end marks the session over. Whatever stop was held for it is spent,
// including when the platform scan failed before it ever started.
func (g *scanGate) end() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scanning = false
	g.pending = false
}

// takePending reports whether a stop is held and clears it.
func (g *scanGate) takePending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.pending
	g.pending = false
	return p
}

// stop calls platformStop while a scan runs. Otherwise, or when the
// platform refuses, the stop is held for the session. mu is not held across
// platformStop, since scan callbacks take it too.
func (g *scanGate) stop(platformStop func() error) error {
	g.mu.Lock()
	if !g.scanning {
		g.pending = true
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	if err := platformStop(); err != nil {
		g.mu.Lock()
		if g.scanning {
			g.pending = true
		}
		g.mu.Unlock()
		return err
	}
	return nil
}
