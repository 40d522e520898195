//go:build !windows

package progress

import "os"

// enableANSI reports true: Unix terminals interpret escape codes natively.
func enableANSI(*os.File) bool { return true }
