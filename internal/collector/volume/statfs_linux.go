//go:build linux

package volume

import "golang.org/x/sys/unix"

// statFS reads filesystem totals for a mount point. Free space is what an
// unprivileged process sees (f_bavail).
func statFS(path string) (fsStats, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fsStats{}, err
	}
	blockSize := uint64(stat.Bsize)
	total := uint64(stat.Blocks) * blockSize
	free := uint64(stat.Bavail) * blockSize
	used := total - min(total, free)
	const mb = 1 << 20
	return fsStats{
		totalMB: total / mb,
		usedMB:  used / mb,
		freeMB:  free / mb,
	}, nil
}
