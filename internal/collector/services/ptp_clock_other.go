//go:build !linux

package services

import "fmt"

func openPHC(path string) (phc, error) {
	return nil, fmt.Errorf("%w: dynamic posix clocks need linux", ErrNoClock)
}
