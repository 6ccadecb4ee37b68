// In file: internal/version/version.go

// Package version centralizes the versioning for the logical components whose
// behaviour shapes a chat answer.
//
// The version strings are folded into cache keys, so bumping any of them
// invalidates every answer cached under the old behaviour.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComponentVersions holds the version strings for the parts of the chat path.
// Manually increment a version number here before you deploy a change to that component.
var ComponentVersions = struct {
	// Tools changes with the schema adapter, the gateway client or result normalization.
	Tools string

	// Schema changes whenever the aircraft table layout described to the model changes.
	Schema string

	// PromptLogic changes with the system prompt or the loop's control flow.
	PromptLogic string
}{
	Tools:       "v1.0",
	Schema:      "v1.0",
	PromptLogic: "v1.0",
}

// GenerateVersionedCacheKey creates a consistent, version-aware key for a chat answer.
// scope separates deployments that share a Redis but differ in model or prompt.
//
// Example output: "chatcache:a1b2c3d4...:tv1.0_sv1.0_pv1.0"
func GenerateVersionedCacheKey(prefix, scope, prompt string) string {
	hasher := sha256.New()
	hasher.Write([]byte(scope))
	hasher.Write([]byte{0})
	hasher.Write([]byte(prompt))
	promptHash := hex.EncodeToString(hasher.Sum(nil))

	versionString := fmt.Sprintf("tv%s_sv%s_pv%s",
		ComponentVersions.Tools,
		ComponentVersions.Schema,
		ComponentVersions.PromptLogic,
	)

	return fmt.Sprintf("%s:%s:%s", prefix, promptHash, versionString)
}
