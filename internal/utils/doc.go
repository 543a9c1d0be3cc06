// Package utils provides input validation shared by the transports and the
// session manager.
//
// Validation:
//   - Namespace (RFC 1123 label) and pod names (RFC 1123 subdomain)
//   - Context names and shell paths
//   - Terminal geometry bounds
//   - Input and frame size limits
//
// Every failure is a *types.Error with code invalid_request.
//
// Example Usage:
//
//	if err := utils.ValidatePodName(req.Pod); err != nil {
//		return err
//	}
package utils
