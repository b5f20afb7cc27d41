// Package fake
// Author: momentics <momentics@gmail.com>
//
// Toy TLS engine. Records look like TLS application data records but the
// payload is only XORed with a key byte. Never use it for real traffic.

package fake

import (
	"encoding/binary"
	"sync"

	"github.com/momentics/hioload-frame/api"
)

const toyHeaderLen = 5

// TLSEngine is a deterministic api.TLSEngine for tests.
type TLSEngine struct {
	mu sync.Mutex

	// Key is XORed into every payload byte.
	Key byte
	// RecordSize bounds the plaintext carried by one record.
	RecordSize int

	closed    bool
	overflows int
}

// NewTLSEngine creates an engine emitting records of at most recordSize
// plaintext bytes.
func NewTLSEngine(key byte, recordSize int) *TLSEngine {
	if recordSize <= 0 {
		recordSize = 1 << 14
	}
	return &TLSEngine{Key: key, RecordSize: recordSize}
}

// Unwrap implements api.TLSEngine. It decodes one record per call.
func (e *TLSEngine) Unwrap(src []byte, dst [][]byte) (int, int, api.TLSStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, 0, api.TLSClosed, nil
	}
	if len(src) < toyHeaderLen {
		return 0, 0, api.TLSBufferUnderflow, nil
	}
	n := int(binary.BigEndian.Uint16(src[3:5]))
	if len(src) < toyHeaderLen+n {
		return 0, 0, api.TLSBufferUnderflow, nil
	}
	room := 0
	for _, d := range dst {
		room += len(d)
	}
	if room < n {
		e.overflows++
		return 0, 0, api.TLSBufferOverflow, nil
	}
	if src[0] == 0x15 {
		e.closed = true
		return toyHeaderLen + n, 0, api.TLSClosed, nil
	}
	payload := src[toyHeaderLen : toyHeaderLen+n]
	i := 0
	for _, d := range dst {
		for j := range d {
			if i == n {
				break
			}
			d[j] = payload[i] ^ e.Key
			i++
		}
	}
	return toyHeaderLen + n, n, api.TLSOK, nil
}

// Wrap implements api.TLSEngine. It encodes one record per call and
// reports overflow unless the whole record fits into dst.
func (e *TLSEngine) Wrap(src [][]byte, dst []byte) (int, int, api.TLSStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, 0, api.TLSClosed, nil
	}
	total := 0
	for _, s := range src {
		total += len(s)
	}
	n := min(total, e.RecordSize)
	if len(dst) < toyHeaderLen+n {
		e.overflows++
		return 0, 0, api.TLSBufferOverflow, nil
	}
	dst[0], dst[1], dst[2] = 0x17, 0x03, 0x03
	binary.BigEndian.PutUint16(dst[3:5], uint16(n))
	i := 0
	for _, s := range src {
		for _, c := range s {
			if i == n {
				break
			}
			dst[toyHeaderLen+i] = c ^ e.Key
			i++
		}
	}
	return n, toyHeaderLen + n, api.TLSOK, nil
}

// Overflows returns how many calls reported destination overflow.
func (e *TLSEngine) Overflows() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overflows
}

// Seal encodes plaintext into toy records, for feeding test connections.
func (e *TLSEngine) Seal(plain []byte) []byte {
	var out []byte
	for {
		n := min(len(plain), e.RecordSize)
		rec := make([]byte, toyHeaderLen+n)
		rec[0], rec[1], rec[2] = 0x17, 0x03, 0x03
		binary.BigEndian.PutUint16(rec[3:5], uint16(n))
		for i := 0; i < n; i++ {
			rec[toyHeaderLen+i] = plain[i] ^ e.Key
		}
		out = append(out, rec...)
		plain = plain[n:]
		if len(plain) == 0 {
			return out
		}
	}
}

// Open decodes toy records back into plaintext.
func (e *TLSEngine) Open(records []byte) []byte {
	var out []byte
	for len(records) >= toyHeaderLen {
		n := int(binary.BigEndian.Uint16(records[3:5]))
		for _, c := range records[toyHeaderLen : toyHeaderLen+n] {
			out = append(out, c^e.Key)
		}
		records = records[toyHeaderLen+n:]
	}
	return out
}

var _ api.TLSEngine = (*TLSEngine)(nil)
