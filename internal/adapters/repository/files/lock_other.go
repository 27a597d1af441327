//go:build !unix && !windows

package files

import "os"

// lockFile is a no-op where the platform has no advisory locks
func lockFile(f *os.File) error { return nil }
