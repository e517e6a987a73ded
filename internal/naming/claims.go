package naming

import "sync"

// OutputClaims tracks which input file first claimed each derived output
// path. The derivation is a fixed substring contract, so a duplicate target
// cannot be renamed away; callers surface it as a warning and the later tool
// run overwrites the earlier plot. All methods are goroutine-safe.
type OutputClaims struct {
	mu     sync.Mutex
	owners map[string]string // output path -> input path that owns it
}

// NewOutputClaims creates a ready-to-use claims tracker.
func NewOutputClaims() *OutputClaims {
	return &OutputClaims{owners: make(map[string]string)}
}

// Claim records input as the owner of output. When output was already
// claimed by a different input, Claim reports that owner and dup=true; the
// first claimant is kept so every later duplicate names the same owner.
func (oc *OutputClaims) Claim(input, output string) (owner string, dup bool) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if prev, exists := oc.owners[output]; exists && prev != input {
		return prev, true
	}
	oc.owners[output] = input
	return input, false
}

// Len returns the number of distinct claimed output paths.
func (oc *OutputClaims) Len() int {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return len(oc.owners)
}
