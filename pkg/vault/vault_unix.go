//go:build !windows

package vault

import (
	"fmt"
	"path/filepath"
	"syscall"
)

// CheckDiskSpace returns disk space information for the account file's
// directory
func (v *Vault) CheckDiskSpace() (*DiskSpaceInfo, error) {
	var stat syscall.Statfs_t
	dir := filepath.Dir(v.path)
	if err := syscall.Statfs(dir, &stat); err != nil {
		// Directory may not exist before Init; try its parent
		if err := syscall.Statfs(filepath.Dir(dir), &stat); err != nil {
			return nil, fmt.Errorf("vault: failed to get disk stats: %w", err)
		}
	}

	bsize := uint64(stat.Bsize) //nolint:gosec // block size is positive
	total := stat.Blocks * bsize
	free := stat.Bfree * bsize
	available := stat.Bavail * bsize

	usedPct := 0
	if total > 0 {
		usedPct = int(100 * (total - free) / total)
	}

	return &DiskSpaceInfo{
		Total:     total,
		Free:      free,
		Available: available,
		UsedPct:   usedPct,
	}, nil
}
