package kermit

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/onionmixer/otelnet/internal/oerr"
	"github.com/onionmixer/otelnet/internal/transfer"
)

func TestSocketIORxdDetectsBinaryModeLoss(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	adapter := NewSocketIO(a, &transfer.PendingQueue{})

	go b.Write([]byte{0xFF, 0xF4}) // IAC IP mid-packet

	if _, err := adapter.rxd(2); !errors.Is(err, oerr.ErrBinaryModeLost) {
		t.Fatalf("rxd() error = %v, want ErrBinaryModeLost", err)
	}
}

func TestKermitReceiveAbortsOnBinaryModeLoss(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	sess := NewSession(&Config{Role: RoleReceive}, NewSocketIO(a, &transfer.PendingQueue{}).IO(), nil)

	go b.Write([]byte{0xFF, 0xF4})

	_, err := sess.Receive(context.Background(), func(FileInfo) (FileSink, error) {
		t.Fatal("open must not be called once binary mode is lost")
		return nil, nil
	})
	if !errors.Is(err, oerr.ErrBinaryModeLost) {
		t.Fatalf("Receive() error = %v, want ErrBinaryModeLost", err)
	}
}
