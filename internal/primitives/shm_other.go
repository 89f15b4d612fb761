//go:build !linux

package primitives

type NamedSHM struct{}

func CreateNamedSHM(name string, size int) (*NamedSHM, error) {
	return nil, ErrUnsupportedPlatform
}

func (s *NamedSHM) Bytes() []byte { return nil }
func (s *NamedSHM) Close() error  { return ErrUnsupportedPlatform }
func (s *NamedSHM) Unlink() error { return ErrUnsupportedPlatform }

func ProcessAlive(pid int) bool { return false }
