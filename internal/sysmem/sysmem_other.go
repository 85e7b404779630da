//go:build !linux

package sysmem

import "errors"

// FreeBytes is unsupported off Linux; callers fall back to their configured
// default budget.
func FreeBytes() (int64, error) {
	return 0, errors.New("sysmem: free memory probe not supported on this platform")
}
