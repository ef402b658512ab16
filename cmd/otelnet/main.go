// Command otelnet is the CLI boundary for the otelnet client (§6
// "CLI surface"). Flag parsing here is deliberately minimal: the
// richer config-file format, session logging and terminal raw-mode
// setup the original program also has are external collaborators
// (§1 Non-goals) and are not implemented by this repository.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/onionmixer/otelnet/internal/detect"
	"github.com/onionmixer/otelnet/internal/kermit"
	"github.com/onionmixer/otelnet/internal/session"
	"github.com/onionmixer/otelnet/internal/telnet"
	"github.com/onionmixer/otelnet/internal/transfer"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("otelnet", flag.ContinueOnError)
	configPath := fs.String("c", "", "path to configuration file (unused: config parsing is out of scope)")
	showVersion := fs.Bool("v", false, "print version and exit")
	metricsAddr := fs.String("metrics-addr", "", "if set, serve Prometheus transfer metrics on this address (e.g. :9090)")
	kermitSend := fs.String("kermit-send", "", "send this file over the embedded Kermit engine, then exit")
	kermitReceiveDir := fs.String("kermit-receive", "", "receive one file into this directory over the embedded Kermit engine, then exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: otelnet <host> <port> [-c CONFIG] [-h] [-v] [-metrics-addr ADDR] [-kermit-send FILE | -kermit-receive DIR]")
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Println("otelnet", version)
		return 0
	}
	_ = configPath

	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return 2
	}
	host, port := rest[0], rest[1]

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", transfer.MetricsHandler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "addr", *metricsAddr, "err", err)
			}
		}()
	}

	addr := net.JoinHostPort(host, port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		logger.Error("connect failed", "addr", addr, "err", err)
		return 1
	}
	defer conn.Close()

	tconn := telnet.NewConnection(logger)
	det := detect.NewEngine()
	sup := transfer.NewSupervisor(tconn, conn, det, logger)

	loop := session.NewLoop(conn, tconn, det, sup, nil, logger)
	ctx := context.Background()

	if *kermitSend != "" {
		if err := runKermitSend(ctx, loop, sup, conn, logger, *kermitSend); err != nil {
			logger.Error("kermit send failed", "path", *kermitSend, "err", err)
			return 1
		}
		return 0
	}
	if *kermitReceiveDir != "" {
		if err := runKermitReceive(ctx, loop, sup, conn, logger, *kermitReceiveDir); err != nil {
			logger.Error("kermit receive failed", "dir", *kermitReceiveDir, "err", err)
			return 1
		}
		return 0
	}

	if err := loop.Run(ctx, os.Stdin); err != nil {
		logger.Error("session ended", "err", err)
		return 1
	}
	return 0
}

// runKermitSend wires the embedded engine to the live socket through
// SocketIO and hands a local file to it as the FileSource (§4.H,
// §4.G step 5's dispatch into the engine).
func runKermitSend(ctx context.Context, loop *session.Loop, sup *transfer.Supervisor, conn net.Conn, logger *slog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}

	info := kermit.FileInfo{Name: filepath.Base(path), Size: st.Size(), ModTime: st.ModTime(), Mode: uint32(st.Mode().Perm())}
	adapter := kermit.NewSocketIO(conn, &sup.Pending).IO()
	sess := kermit.NewSession(&kermit.Config{Role: kermit.RoleSend}, adapter, logger)

	return loop.RunKermitTransfer(ctx, sess, true, info, f, nil)
}

// runKermitReceive mirrors runKermitSend for the receive direction,
// writing the accepted file into dir under its sanitized name.
func runKermitReceive(ctx context.Context, loop *session.Loop, sup *transfer.Supervisor, conn net.Conn, logger *slog.Logger, dir string) error {
	adapter := kermit.NewSocketIO(conn, &sup.Pending).IO()
	sess := kermit.NewSession(&kermit.Config{Role: kermit.RoleReceive}, adapter, logger)

	open := func(info kermit.FileInfo) (kermit.FileSink, error) {
		path := filepath.Join(dir, kermit.SanitizeFilename(info.Name))
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return &fileSink{f: f, path: path}, nil
	}

	return loop.RunKermitTransfer(ctx, sess, false, kermit.FileInfo{}, nil, open)
}

// fileSink adapts *os.File to kermit.FinishSink, applying §4.H
// closef's "delete a partially-received file only on a mid-transfer
// abort with keep-incomplete false" rule.
type fileSink struct {
	f    *os.File
	path string
}

func (s *fileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *fileSink) Flush() error                { return s.f.Sync() }
func (s *fileSink) Close() error                { return s.f.Close() }

func (s *fileSink) Finish(status kermit.CloseStatus, keepIncomplete bool) error {
	if err := s.f.Close(); err != nil {
		return err
	}
	if status == kermit.CloseMidTransfer && !keepIncomplete {
		return os.Remove(s.path)
	}
	return nil
}
