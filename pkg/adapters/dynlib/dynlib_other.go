//go:build !(darwin || freebsd || linux || windows)

package dynlib

func (l *Library) Open(path string) (uintptr, error) {
	return 0, ErrUnsupported
}

func (l *Library) Resolve(handle uintptr, symbol string) (uintptr, bool) {
	return 0, false
}

func (l *Library) Call(fn uintptr, args ...uintptr) uintptr {
	return 0
}

func (l *Library) Close(handle uintptr) error {
	return nil
}
