package stage

import (
	"fmt"
	"os/exec"
)

// RequireTool builds a Health record from whether the named binary resolves.
// Stage handlers that shell out use it for their readiness checks.
func RequireTool(stageName, binary string) Health {
	if binary == "" {
		return Unhealthy(stageName, "tool binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return Unhealthy(stageName, fmt.Sprintf("%s not found in PATH", binary))
	}
	return Healthy(stageName)
}
