package gssext

import (
	"time"

	"github.com/systmms/gssext/pkg/native"
)

// Logger receives one debug line per native call. *logging.Logger satisfies
// it. Payloads, passwords and attribute values are never logged.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Observer is told about every native call, including release calls.
type Observer interface {
	ObserveNativeCall(op string, st native.Status, elapsed time.Duration)
}

// Client issues GSSAPI extension calls against a native.Library.
type Client struct {
	lib native.Library
	log Logger
	obs Observer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithObserver sets the native call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.obs = o
	}
}

// New returns a Client for lib. The library must already be initialised.
func New(lib native.Library, opts ...Option) *Client {
	c := &Client{lib: lib}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SecurityContext is an established security context. Contexts are created
// and deleted outside this package; the Client only reads them.
type SecurityContext struct {
	handle native.ContextHandle
}

// NewSecurityContext wraps a context established elsewhere.
func NewSecurityContext(h native.ContextHandle) *SecurityContext {
	return &SecurityContext{handle: h}
}

// Credential is a credential returned by AddCredWithPassword or
// SetCredOption. Release it with Client.ReleaseCredential.
type Credential struct {
	handle native.CredHandle
}

// Handle returns the native handle.
func (c *Credential) Handle() native.CredHandle {
	return c.handle
}

// Name is an internal name returned by ImportName. Release it with
// Client.ReleaseName.
type Name struct {
	handle native.NameHandle
}

// Handle returns the native handle.
func (n *Name) Handle() native.NameHandle {
	return n.handle
}

// call runs fn, reports the resulting status and translates it.
func (c *Client) call(op string, fn func() native.Status) error {
	start := time.Now()
	st := fn()
	elapsed := time.Since(start)

	if c.log != nil {
		c.log.Debug("%s: %s (%s)", op, st, elapsed)
	}
	if c.obs != nil {
		c.obs.ObserveNativeCall(op, st, elapsed)
	}
	return checkStatus(op, st)
}

// ReleaseName releases n. The Name must not be used afterwards.
func (c *Client) ReleaseName(n *Name) error {
	if n == nil || n.handle == nil {
		return nil
	}
	return c.call(native.OpReleaseName, func() native.Status {
		return c.lib.ReleaseName(&n.handle)
	})
}

// ReleaseCredential releases cred. The Credential must not be used
// afterwards.
func (c *Client) ReleaseCredential(cred *Credential) error {
	if cred == nil || cred.handle == nil {
		return nil
	}
	return c.call(native.OpReleaseCred, func() native.Status {
		return c.lib.ReleaseCred(&cred.handle)
	})
}
