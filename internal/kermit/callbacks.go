package kermit

import (
	"errors"
	"io"
)

// ErrRxdTimeout is returned by IO.Rxd when no packet arrived within
// the requested timeout — distinct from io.EOF (peer gone) and from a
// hard I/O failure, since the engine's retry policy treats each
// differently (§4.H retry/failure caps).
var ErrRxdTimeout = errors.New("kermit: receive timed out")

// IO is the I/O callback contract the engine drives (§4.H). It is a
// Go-idiomatic rendering of the five callbacks: the unusual
// single-byte Readf/Writef contract the spec documents for the
// C-shaped original is preserved behind the FileSource/FileSink
// interfaces below, not in this struct's own signatures, since a
// byte-at-a-time function-pointer contract has no idiomatic Go
// equivalent worth keeping.
type IO struct {
	// Rxd reads and returns one already-unescaped, already-unframed
	// packet body (SOH/EOM stripped, binary-mode IAC pairs collapsed).
	// It must drain PendingBytes before touching the socket. Returns
	// io.EOF if the peer closed the connection, and oerr.ErrBinaryModeLost
	// if an IAC-non-IAC pair showed up mid-stream. SocketIO in
	// ioadapt.go is the production implementation.
	Rxd func(timeoutSeconds int) ([]byte, error)

	// Txd writes a framed, escaped packet to the socket. Partial
	// writes loop internally; callers never see a short write.
	Txd func(framed []byte) error

	// Ixd reports whether input is available without consuming it,
	// used for the sliding window's optimistic-read decision.
	Ixd func() bool
}

// FileSource is what openf(mode=1)/readf resolve to: a seekable or
// streaming source of the bytes being sent.
type FileSource interface {
	io.Reader
	io.Closer
}

// FileSink is what openf(mode=2)/writef resolve to: the destination
// for bytes being received. Flush is called at least every 8 KiB
// written, mirroring the original callback's disk-flush cadence.
type FileSink interface {
	io.Writer
	Flush() error
	io.Closer
}

// CloseStatus tells FileSink.Close (via the engine, not the
// interface itself — Go's io.Closer takes no arguments) whether the
// transfer completed normally. The engine calls a wrapping function,
// not Close directly, when it needs to act on status.
type CloseStatus int

const (
	CloseNormal      CloseStatus = iota // EOT or EOF packet closed the file
	CloseMidTransfer                    // aborted mid-data
)

// FinishSink is the optional extra hook a FileSink may implement to
// learn the final close status and whether to discard a partial file
// (§4.H closef: "deletes a partially-received file only when receive
// mode and status is mid-data and keep-incomplete is false").
type FinishSink interface {
	FileSink
	Finish(status CloseStatus, keepIncomplete bool) error
}
