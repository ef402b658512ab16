package kermit

import (
	"context"
	"errors"
	"fmt"

	"github.com/onionmixer/otelnet/internal/oerr"
)

// recvState names the top-level receive-path states from §4.H.
type recvState int

const (
	rxInit recvState = iota
	rxFile
	rxData
	rxEOF // file done, waiting for the batch-level EOT (B) packet
	rxDone
)

func (s *Session) runReceiver(ctx context.Context, open func(FileInfo) (FileSink, error)) (FileInfo, error) {
	state := rxInit
	bct := BCT1
	var info FileInfo
	var sink FileSink
	closeStatus := CloseMidTransfer
	finished := false
	unflushed := 0 // bytes written since the last sink.Flush

	defer func() {
		if sink != nil && !finished {
			finishSink(sink, closeStatus, s.cfg.KeepIncomplete)
		}
	}()

	for state != rxDone {
		if ctx.Err() != nil {
			return info, oerr.ErrUserCancel
		}
		if s.deadlineExceeded() {
			return info, oerr.ErrTransferTimeout
		}

		pkt, err := s.recvPacket(ctx, bct)
		if err != nil {
			return info, err
		}

		switch state {
		case rxInit:
			if pkt.Type != TypeSend {
				s.sendNak(pkt.Seq, bct)
				continue
			}
			maxData, negWindow, remoteBCT, perr := parseSInitData(pkt.Data)
			if perr != nil {
				s.sendNak(pkt.Seq, bct)
				continue
			}
			if maxData < s.cfg.MaxData {
				s.cfg.MaxData = maxData
			}
			if negWindow < s.cfg.Window {
				s.cfg.Window = negWindow
			}
			s.cfg.BCT = remoteBCT
			ack := Packet{Seq: pkt.Seq, Type: TypeAck, Data: sInitData(s.cfg)}
			if err := s.io.Txd(Encode(ack, BCT1)); err != nil {
				return info, fmt.Errorf("kermit: txd: %w", err)
			}
			bct = s.cfg.BCT
			state = rxFile

		case rxFile:
			if pkt.Type != TypeFile {
				s.sendNak(pkt.Seq, bct)
				continue
			}
			info, err = parseFileInfo(pkt.Data)
			if err != nil {
				s.sendNak(pkt.Seq, bct)
				continue
			}
			sink, err = open(info)
			if err != nil {
				return info, fmt.Errorf("kermit: open sink: %w", err)
			}
			s.ack(pkt.Seq, bct)
			state = rxData

		case rxData:
			switch pkt.Type {
			case TypeData:
				if _, werr := sink.Write(pkt.Data); werr != nil {
					return info, fmt.Errorf("kermit: write: %w", werr)
				}
				unflushed += len(pkt.Data)
				if unflushed >= 8*1024 {
					if ferr := sink.Flush(); ferr != nil {
						return info, fmt.Errorf("kermit: flush: %w", ferr)
					}
					unflushed = 0
				}
				s.ack(pkt.Seq, bct)
			case TypeEOF:
				s.ack(pkt.Seq, bct)
				closeStatus = CloseNormal
				state = rxEOF
			default:
				s.sendNak(pkt.Seq, bct)
			}

		case rxEOF:
			if pkt.Type != TypeEOT {
				s.sendNak(pkt.Seq, bct)
				continue
			}
			s.ack(pkt.Seq, bct)
			state = rxDone
		}
	}

	if sink != nil {
		err := finishSink(sink, closeStatus, s.cfg.KeepIncomplete)
		finished = true
		if err != nil {
			return info, err
		}
	}
	return info, nil
}

// recvPacket reads and decodes one packet, retrying on timeout and
// NAKing on checksum failure, enforcing both retry caps.
func (s *Session) recvPacket(ctx context.Context, bct int) (Packet, error) {
	for {
		if ctx.Err() != nil {
			return Packet{}, oerr.ErrUserCancel
		}
		if s.deadlineExceeded() {
			return Packet{}, oerr.ErrTransferTimeout
		}

		raw, err := s.io.Rxd(s.cfg.RTimeout)
		if errors.Is(err, ErrRxdTimeout) {
			if terr := s.noteTimeout(); terr != nil {
				return Packet{}, terr
			}
			continue
		}
		if err != nil {
			return Packet{}, fmt.Errorf("kermit: rxd: %w", err)
		}

		pkt, derr := Decode(raw, bct)
		if derr != nil {
			if nerr := s.noteNak(); nerr != nil {
				return Packet{}, nerr
			}
			s.sendNak(0, bct)
			continue
		}

		s.noteSuccess()
		return pkt, nil
	}
}

func (s *Session) ack(seq byte, bct int) {
	s.io.Txd(Encode(Packet{Seq: seq, Type: TypeAck}, bct))
}

func (s *Session) sendNak(seq byte, bct int) {
	s.io.Txd(Encode(Packet{Seq: seq, Type: TypeNak}, bct))
}

// finishSink flushes and closes sink, invoking the optional
// FinishSink.Finish hook so callers can implement the
// delete-partial-file-on-mid-transfer-abort rule from §4.H.
func finishSink(sink FileSink, status CloseStatus, keepIncomplete bool) error {
	sink.Flush()
	if fs, ok := sink.(FinishSink); ok {
		return fs.Finish(status, keepIncomplete)
	}
	return sink.Close()
}
