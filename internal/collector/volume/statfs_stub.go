//go:build !linux

package volume

import "errors"

func statFS(path string) (fsStats, error) {
	return fsStats{}, errors.New("volume capacity collection is only supported on linux")
}
