package utils

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/podshell/internal/types"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Size limits (in bytes)
const (
	MaxFrameSize   = 1 * 1024 * 1024 // 1MB - maximum inbound WebSocket frame
	MaxInputSize   = 64 * 1024       // 64KB - single input write
	MaxShellLength = 256
	MaxContextName = 253
)

// Geometry bounds in character cells
const (
	MinDimension = 1
	MaxDimension = 1000
)

// ValidateNamespace checks a namespace name (RFC 1123 label)
func ValidateNamespace(namespace string) error {
	if msgs := validation.IsDNS1123Label(namespace); len(msgs) > 0 {
		return types.InvalidRequest(fmt.Sprintf("invalid namespace %q: %s", namespace, strings.Join(msgs, "; ")))
	}
	return nil
}

// ValidatePodName checks a pod name (RFC 1123 subdomain)
func ValidatePodName(name string) error {
	if msgs := validation.IsDNS1123Subdomain(name); len(msgs) > 0 {
		return types.InvalidRequest(fmt.Sprintf("invalid pod name %q: %s", name, strings.Join(msgs, "; ")))
	}
	return nil
}

// ValidateContextName checks a kubeconfig context name. Context names are
// free-form in kubeconfig, so only emptiness and length are enforced.
func ValidateContextName(name string) error {
	if name == "" {
		return types.InvalidRequest("context name is required")
	}
	if len(name) > MaxContextName {
		return types.InvalidRequest(fmt.Sprintf("context name exceeds %d characters", MaxContextName))
	}
	return nil
}

// ValidateShell checks the shell path handed to the exec command
func ValidateShell(shell string) error {
	if shell == "" {
		return types.InvalidRequest("shell is required")
	}
	if len(shell) > MaxShellLength {
		return types.InvalidRequest(fmt.Sprintf("shell exceeds %d characters", MaxShellLength))
	}
	if strings.ContainsAny(shell, "\x00\n\r") {
		return types.InvalidRequest("shell contains control characters")
	}
	return nil
}

// ValidateGeometry checks a terminal size. The zero geometry is accepted
// and means "use the default".
func ValidateGeometry(g types.Geometry) error {
	if g.Cols == 0 && g.Rows == 0 {
		return nil
	}
	if g.Cols < MinDimension || g.Cols > MaxDimension || g.Rows < MinDimension || g.Rows > MaxDimension {
		return types.InvalidRequest(fmt.Sprintf("geometry %dx%d out of range", g.Cols, g.Rows))
	}
	return nil
}

// ValidateInput checks the size of one input write
func ValidateInput(data []byte) error {
	if len(data) > MaxInputSize {
		return types.InvalidRequest(fmt.Sprintf("input of %d bytes exceeds maximum %d bytes", len(data), MaxInputSize))
	}
	return nil
}
