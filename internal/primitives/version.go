// Package primitives provides versioning utilities for MachineConfig.
package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ComputeVersion computes a deterministic version for a MachineConfig.
// Priority: user-provided config.Version, else SHA256(config JSON)[:8].
// Persisted snapshots carry the version so a changed definition is detected on restore.
func ComputeVersion(config *MachineConfig) string {
	if config.Version != "" {
		return config.Version
	}

	data, err := json.Marshal(config)
	if err != nil {
		// GuardParams may hold values json cannot encode; fall back to the structural dump.
		data = fmt.Appendf(nil, "%#v", *config)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
