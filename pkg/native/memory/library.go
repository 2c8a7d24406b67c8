package memory

import (
	"sync"
	"time"
	"unsafe"

	"github.com/systmms/gssext/pkg/native"
)

// DefaultTicketLifetime caps initiator credential lifetimes, the way a KDC
// caps ticket lifetimes.
const DefaultTicketLifetime = 10 * time.Hour

// Stats counts native allocations and releases. Every allocation made by an
// output parameter must eventually be matched by a release.
type Stats struct {
	BuffersAllocated    int
	BuffersReleased     int
	BufferSetsAllocated int
	BufferSetsReleased  int
	OidSetsAllocated    int
	OidSetsReleased     int

	NamesAllocated int
	NamesReleased  int
	CredsAllocated int
	CredsReleased  int

	// InvalidReleases counts releases of memory that was never allocated or
	// was already released.
	InvalidReleases int
}

// Outstanding returns the number of output buffers, buffer sets and OID sets
// that have been allocated but not released.
func (s Stats) Outstanding() int {
	return (s.BuffersAllocated - s.BuffersReleased) +
		(s.BufferSetsAllocated - s.BufferSetsReleased) +
		(s.OidSetsAllocated - s.OidSetsReleased)
}

// Call is one entry of the call log. Only the fields relevant to Op are set.
type Call struct {
	Op     string
	Status native.Status

	// gss_wrap_aead, gss_unwrap_aead
	AssocPresent bool
	// gss_set_name_attribute
	Complete bool
	// gss_inquire_name
	WantMechName bool
	WantAttrs    bool
	// gss_add_cred_with_password
	Usage         native.CredUsage
	InitiatorTime uint32
	AcceptorTime  uint32
	// gss_set_cred_option
	ValuePresent bool
}

type failure struct {
	op        string
	countdown int
	status    native.Status
	late      bool
}

// Library is an in-memory native.Library. It keeps every allocation in a
// table so tests can assert release discipline, records each call, and can
// be told to fail specific calls.
//
// Library is safe for concurrent use.
type Library struct {
	mu sync.Mutex

	buffers    map[unsafe.Pointer][]byte
	bufferSets map[unsafe.Pointer]*setRecord
	oidSets    map[unsafe.Pointer]*setRecord
	names      map[unsafe.Pointer]*name
	creds      map[unsafe.Pointer]*credential
	contexts   map[unsafe.Pointer]*secContext

	principals  map[string][]byte
	credOptions map[string]bool

	ticketLifetime time.Duration

	stats    Stats
	calls    []Call
	failures []*failure
}

// setRecord backs a BufferSet or OidSet. Elements point into backing.
type setRecord struct {
	backing [][]byte
}

// Option configures a Library.
type Option func(*Library)

// WithTicketLifetime overrides DefaultTicketLifetime.
func WithTicketLifetime(d time.Duration) Option {
	return func(l *Library) {
		l.ticketLifetime = d
	}
}

// New returns an empty Library.
func New(opts ...Option) *Library {
	l := &Library{
		buffers:        make(map[unsafe.Pointer][]byte),
		bufferSets:     make(map[unsafe.Pointer]*setRecord),
		oidSets:        make(map[unsafe.Pointer]*setRecord),
		names:          make(map[unsafe.Pointer]*name),
		creds:          make(map[unsafe.Pointer]*credential),
		contexts:       make(map[unsafe.Pointer]*secContext),
		principals:     make(map[string][]byte),
		credOptions:    map[string]bool{native.OIDCredNoCIFlags.String(): true},
		ticketLifetime: DefaultTicketLifetime,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stats returns a snapshot of the allocation counters.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Calls returns a copy of the call log.
func (l *Library) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Call, len(l.calls))
	copy(out, l.calls)
	return out
}

// CallsTo returns the logged calls to op, in order.
func (l *Library) CallsTo(op string) []Call {
	var out []Call
	for _, c := range l.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log but keeps the allocation counters.
func (l *Library) ResetCalls() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// FailOn makes the nth subsequent call to op (1-based) report st. Output
// parameters of a failed call are left unpopulated.
func (l *Library) FailOn(op string, nth int, st native.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if nth < 1 {
		nth = 1
	}
	l.failures = append(l.failures, &failure{op: op, countdown: nth, status: st})
}

// FailLateOn is FailOn for a mechanism that fails after the generic layer has
// done its work: the call allocates and populates its outputs as if it
// succeeded, then reports st. Only SetCredOption honours late failures.
func (l *Library) FailLateOn(op string, nth int, st native.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if nth < 1 {
		nth = 1
	}
	l.failures = append(l.failures, &failure{op: op, countdown: nth, status: st, late: true})
}

// AllowCredOption registers an additional OID accepted by SetCredOption.
func (l *Library) AllowCredOption(oid []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if parsed, err := native.UnmarshalOID(oid); err == nil {
		l.credOptions[parsed.String()] = true
	}
}

// injected reports whether an injected failure applies to this call of op.
// Callers hold l.mu.
func (l *Library) injected(op string) (native.Status, bool) {
	return l.inject(op, false)
}

// injectedLate is injected for failures registered with FailLateOn.
func (l *Library) injectedLate(op string) (native.Status, bool) {
	return l.inject(op, true)
}

func (l *Library) inject(op string, late bool) (native.Status, bool) {
	for i, f := range l.failures {
		if f.op != op || f.late != late {
			continue
		}
		f.countdown--
		if f.countdown > 0 {
			continue
		}
		l.failures = append(l.failures[:i], l.failures[i+1:]...)
		return f.status, true
	}
	return native.Status{}, false
}

// finish appends c to the call log with st and returns st. Callers hold l.mu.
func (l *Library) finish(c Call, st native.Status) native.Status {
	c.Status = st
	l.calls = append(l.calls, c)
	return st
}

func routine(major uint32) native.Status {
	return native.Status{Major: major}
}

// allocBuffer copies data into a new tracked allocation. The backing array is
// one byte longer than data so zero-length outputs still have a payload
// pointer, as C allocators return.
func (l *Library) allocBuffer(data []byte) native.Buffer {
	backing := make([]byte, len(data)+1)
	copy(backing, data)
	ptr := unsafe.Pointer(&backing[0])
	l.buffers[ptr] = backing
	l.stats.BuffersAllocated++
	return native.Buffer{Length: len(data), Value: ptr}
}

func newSetRecord(elements [][]byte) (*setRecord, []native.Buffer) {
	rec := &setRecord{backing: make([][]byte, len(elements))}
	bufs := make([]native.Buffer, len(elements))
	for i, e := range elements {
		b := make([]byte, len(e)+1)
		copy(b, e)
		rec.backing[i] = b
		bufs[i] = native.Buffer{Length: len(e), Value: unsafe.Pointer(&b[0])}
	}
	return rec, bufs
}

func (l *Library) allocBufferSet(elements [][]byte) native.BufferSet {
	rec, bufs := newSetRecord(elements)
	ref := unsafe.Pointer(rec)
	l.bufferSets[ref] = rec
	l.stats.BufferSetsAllocated++
	return native.BufferSet{Ref: ref, Elements: bufs}
}

func (l *Library) allocOidSet(oids [][]byte) native.OidSet {
	rec, bufs := newSetRecord(oids)
	ref := unsafe.Pointer(rec)
	l.oidSets[ref] = rec
	l.stats.OidSetsAllocated++
	return native.OidSet{Ref: ref, Elements: bufs}
}

// ReleaseBuffer implements native.Library. Injected failures are reported
// after the memory has been freed.
func (l *Library) ReleaseBuffer(buf *native.Buffer) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpReleaseBuffer}

	if buf == nil {
		return l.finish(c, routine(native.CallInaccessibleRead))
	}
	if buf.Value == nil {
		*buf = native.EmptyBuffer
		return l.finish(c, native.Status{})
	}
	if _, ok := l.buffers[buf.Value]; !ok {
		l.stats.InvalidReleases++
		return l.finish(c, routine(native.Failure))
	}
	delete(l.buffers, buf.Value)
	l.stats.BuffersReleased++
	*buf = native.EmptyBuffer

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st)
	}
	return l.finish(c, native.Status{})
}

// ReleaseBufferSet implements native.Library.
func (l *Library) ReleaseBufferSet(set *native.BufferSet) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpReleaseBufferSet}

	if set == nil {
		return l.finish(c, routine(native.CallInaccessibleRead))
	}
	if set.Ref == nil {
		return l.finish(c, native.Status{})
	}
	if _, ok := l.bufferSets[set.Ref]; !ok {
		l.stats.InvalidReleases++
		return l.finish(c, routine(native.Failure))
	}
	delete(l.bufferSets, set.Ref)
	l.stats.BufferSetsReleased++
	*set = native.BufferSet{}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st)
	}
	return l.finish(c, native.Status{})
}

// ReleaseOidSet implements native.Library.
func (l *Library) ReleaseOidSet(set *native.OidSet) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := Call{Op: native.OpReleaseOidSet}

	if set == nil {
		return l.finish(c, routine(native.CallInaccessibleRead))
	}
	if set.Ref == nil {
		return l.finish(c, native.Status{})
	}
	if _, ok := l.oidSets[set.Ref]; !ok {
		l.stats.InvalidReleases++
		return l.finish(c, routine(native.Failure))
	}
	delete(l.oidSets, set.Ref)
	l.stats.OidSetsReleased++
	*set = native.OidSet{}

	if st, ok := l.injected(c.Op); ok {
		return l.finish(c, st)
	}
	return l.finish(c, native.Status{})
}

var _ native.Library = (*Library)(nil)
