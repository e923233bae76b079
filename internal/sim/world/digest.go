package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// stateDigest hashes the canonical core state so tests and tick logs
// can compare runs cheaply. All inputs are produced in sorted order.
func (w *World) stateDigest(tick uint64) string {
	type digestState struct {
		Tick      uint64      `json:"tick"`
		Grid      interface{} `json:"grid"`
		Registry  interface{} `json:"registry"`
		Knowledge interface{} `json:"knowledge"`
	}
	b, err := json.Marshal(digestState{
		Tick:      tick,
		Grid:      w.GridSnapshot(),
		Registry:  w.registry.Snapshot(),
		Knowledge: w.store.Snapshot(),
	})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}
