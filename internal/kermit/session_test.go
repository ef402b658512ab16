package kermit

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"
)

// pipeIO adapts a net.Conn into the IO callback contract for tests:
// a minimal, synchronous stand-in for what the Transfer Supervisor
// wires up in production (pending-queue drain, escape codec).
func pipeIO(conn net.Conn) IO {
	return IO{
		Txd: func(framed []byte) error {
			_, err := conn.Write(framed)
			return err
		},
		Rxd: func(timeoutSeconds int) ([]byte, error) {
			conn.SetReadDeadline(time.Now().Add(time.Duration(timeoutSeconds) * time.Second))
			buf := make([]byte, 8192)
			n, err := readPacket(conn, buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					return nil, ErrRxdTimeout
				}
				return nil, err
			}
			return StripFraming(buf[:n]), nil
		},
		Ixd: func() bool { return false },
	}
}

// readPacket reads until it has seen the trailing EOM byte, since the
// test transport is a raw byte pipe with no higher-level framing. Data
// bytes may themselves be CR or LF, so the LEN field (and, for a long
// packet, its length extension) decides where the data ends; only an
// EOM byte after that ends the packet.
func readPacket(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for {
		if n >= len(buf) {
			return n, io.ErrShortBuffer
		}
		one := buf[n : n+1]
		m, err := conn.Read(one)
		if err != nil {
			return n, err
		}
		n += m
		dataEnd := n // first index at which an EOM byte may end the packet
		if n > 2 && unCharFull(buf[1]) != 0 {
			dataEnd = 2 + int(unCharFull(buf[1]))
		} else if n > 6 {
			dataEnd = 6 + (int(unCharFull(buf[4]))<<7 | int(unCharFull(buf[5])))
		}
		if n-1 >= dataEnd && (buf[n-1] == eomCR || buf[n-1] == eomLF) {
			return n, nil
		}
	}
}

type memSink struct {
	buf    bytes.Buffer
	closed bool
}

func (m *memSink) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memSink) Flush() error                { return nil }
func (m *memSink) Close() error                { m.closed = true; return nil }

type memSource struct{ r io.Reader }

func (m *memSource) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memSource) Close() error               { return nil }

func TestSendReceiveLoopback(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	content := []byte("the quick brown fox jumps over the lazy dog\n")
	sender := NewSession(&Config{Role: RoleSend}, pipeIO(clientConn), nil)
	receiver := NewSession(&Config{Role: RoleReceive}, pipeIO(serverConn), nil)

	var sink memSink
	recvErrCh := make(chan error, 1)
	var recvInfo FileInfo
	go func() {
		info, err := receiver.Receive(context.Background(), func(FileInfo) (FileSink, error) {
			return &sink, nil
		})
		recvInfo = info
		recvErrCh <- err
	}()

	info := FileInfo{Name: "fox.txt", Size: int64(len(content))}
	src := &memSource{r: bytes.NewReader(content)}
	if err := sender.Send(context.Background(), info, src); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := <-recvErrCh; err != nil {
		t.Fatalf("receive: %v", err)
	}

	if recvInfo.Name != "fox.txt" {
		t.Fatalf("received filename = %q, want fox.txt", recvInfo.Name)
	}
	if !bytes.Equal(sink.buf.Bytes(), content) {
		t.Fatalf("received content mismatch: got %q, want %q", sink.buf.Bytes(), content)
	}
	if !sink.closed {
		t.Fatal("expected sink to be closed after transfer")
	}
}

func TestSessionReleasesActiveFlagAfterSend(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	s := NewSession(&Config{Role: RoleSend}, pipeIO(c1), nil)
	_ = c2

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // immediately cancelled so Send returns fast via ctx.Err()

	done := make(chan struct{})
	go func() {
		s.Send(ctx, FileInfo{Name: "a"}, &memSource{r: bytes.NewReader(nil)})
		close(done)
	}()
	<-done

	if s.active {
		t.Fatal("session must release its active flag after Send returns")
	}
}
