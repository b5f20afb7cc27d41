// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport provides non-blocking TCP sockets implementing
// api.NetConn with vectored reads and writes, plus a non-blocking listener
// and dialer for use with the reactor. Linux only; other platforms report
// api.ErrNotSupported.
package transport
