package kermit

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/onionmixer/otelnet/internal/oerr"
)

// Role selects which side of the exchange a Session plays.
type Role int

const (
	RoleSend Role = iota
	RoleReceive
)

// Config controls engine behavior (§4.H "Protocol state machine").
type Config struct {
	Role      Role
	BCT       int // block check after S-init (S-init and its ACK always use BCT1); defaults to BCT3, then takes the peer's choice
	Binary    bool
	Window    int
	MaxData   int
	RTimeout  int // seconds, per-packet receive timeout
	STimeout  int // seconds, send-side timeout before retry
	KeepIncomplete bool
}

// defaults fills zero-valued fields with §4.H's installed parameters.
// rTimeout/sTimeout are set here, after the rest of init, matching the
// original engine's requirement that they be assigned last so a
// platform default can't silently overwrite them.
func (c *Config) defaults() {
	if c.BCT == 0 {
		c.BCT = DefaultBCT
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxData <= 0 {
		c.MaxData = DefaultMaxData
	}
	c.Binary = true
	c.RTimeout = DefaultRTimeout
	c.STimeout = DefaultSTimeout
}

// Session runs one Kermit transfer (send or receive) to completion.
// It owns a single in-flight packet buffer, one file handle, and its
// protocol state machine's position, matching §4.H's stated ownership
// boundaries.
type Session struct {
	cfg    Config
	io     IO
	logger *slog.Logger

	win *window

	consecNaks     int
	consecTimeouts int
	deadline       time.Time

	mu     sync.Mutex
	active bool
}

// NewSession returns a Session ready to run once. cfg may be nil, in
// which case all defaults apply.
func NewSession(cfg *Config, ioCallbacks IO, logger *slog.Logger) *Session {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{cfg: c, io: ioCallbacks, logger: logger, win: newWindow(c.Window)}
}

// Send runs the sender state machine against src, whose metadata is
// described by info.
func (s *Session) Send(ctx context.Context, info FileInfo, src FileSource) error {
	if !s.acquire() {
		return errors.New("kermit: session already active")
	}
	defer s.release()
	s.startDeadline()
	s.logger.Info("kermit send starting", "name", info.Name, "size", info.Size)
	err := s.runSender(ctx, info, src)
	if err != nil {
		s.logger.Warn("kermit send failed", "name", info.Name, "err", err)
	} else {
		s.logger.Info("kermit send completed", "name", info.Name)
	}
	return err
}

// Receive runs the receiver state machine, handing each accepted file
// to open for a FileSink.
func (s *Session) Receive(ctx context.Context, open func(FileInfo) (FileSink, error)) (FileInfo, error) {
	if !s.acquire() {
		return FileInfo{}, errors.New("kermit: session already active")
	}
	defer s.release()
	s.startDeadline()
	return s.runReceiver(ctx, open)
}

func (s *Session) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

func (s *Session) startDeadline() {
	s.deadline = time.Now().Add(globalDeadlineSeconds * time.Second)
	s.consecNaks = 0
	s.consecTimeouts = 0
}

func (s *Session) deadlineExceeded() bool { return time.Now().After(s.deadline) }

// noteSuccess resets both retry counters, per §4.H "a successful data
// exchange resets both counters".
func (s *Session) noteSuccess() {
	s.consecNaks = 0
	s.consecTimeouts = 0
}

func (s *Session) noteTimeout() error {
	s.consecTimeouts++
	if s.consecTimeouts > maxConsecutiveTimeouts {
		return oerr.ErrTransferTimeout
	}
	return nil
}

func (s *Session) noteNak() error {
	s.consecNaks++
	if s.consecNaks > maxConsecutiveNaks {
		return &oerr.RetryLimitExceeded{Kind: oerr.RetryNak, Limit: maxConsecutiveNaks}
	}
	return nil
}

// sInitData encodes the handshake parameters the spec's S-init packet
// carries: max long-packet length, window size and preferred block
// check, as decimal fields (a deliberate simplification of classic
// Kermit's single-character-per-field encoding, recorded in
// DESIGN.md).
func sInitData(c Config) []byte {
	return []byte(strconv.Itoa(c.MaxData) + " " + strconv.Itoa(c.Window) + " " + strconv.Itoa(c.BCT))
}

func parseSInitData(data []byte) (maxData, window, bct int, err error) {
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0, errors.New("kermit: malformed s-init parameters")
	}
	maxData, _ = strconv.Atoi(fields[0])
	window, _ = strconv.Atoi(fields[1])
	bct, _ = strconv.Atoi(fields[2])
	if maxData <= 0 || window <= 0 || (bct != BCT1 && bct != BCT3) {
		return 0, 0, 0, errors.New("kermit: invalid s-init parameters")
	}
	return maxData, window, bct, nil
}
