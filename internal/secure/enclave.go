package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer holds a password encrypted in a memguard enclave. The
// plaintext only exists inside Use, in locked memory that is wiped on return.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// NewSecureBuffer seals data into an enclave and wipes data.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return &SecureBuffer{empty: true}, nil
	}
	// memguard.NewEnclave wipes its source
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}, nil
}

// Open decrypts the enclave into a locked buffer. The caller must Destroy the
// returned buffer. An empty or destroyed SecureBuffer opens as an empty
// buffer.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.empty {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// Use opens the buffer, passes the plaintext to fn and wipes it once fn
// returns. fn must not retain the slice.
func (s *SecureBuffer) Use(fn func(plaintext []byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy drops the enclave. It is idempotent; afterwards Open yields an
// empty buffer.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
