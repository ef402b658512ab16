package kermit

import (
	"context"
	"errors"
	"fmt"

	"github.com/onionmixer/otelnet/internal/oerr"
)

// senderState names the top-level send-path states from §4.H: S-init,
// File header, Data, end-of-File, end-of-Transmission (Break), Done.
type senderState int

const (
	sxInit senderState = iota
	sxFile
	sxData
	sxEOF
	sxBreak
	sxDone
)

func (s *Session) runSender(ctx context.Context, info FileInfo, src FileSource) error {
	state := sxInit
	var seq byte

	for state != sxDone {
		if ctx.Err() != nil {
			return oerr.ErrUserCancel
		}
		if s.deadlineExceeded() {
			s.sendErrorBestEffort(seq, "global deadline exceeded")
			return oerr.ErrTransferTimeout
		}

		switch state {
		case sxInit:
			pkt := Packet{Seq: seq, Type: TypeSend, Data: sInitData(s.cfg)}
			ack, err := s.sendAndAwaitAck(ctx, pkt, BCT1, TypeAck)
			if err != nil {
				return err
			}
			if maxData, negWindow, remoteBCT, perr := parseSInitData(ack.Data); perr == nil {
				if maxData < s.cfg.MaxData {
					s.cfg.MaxData = maxData
				}
				if negWindow < s.cfg.Window {
					s.cfg.Window = negWindow
				}
				s.cfg.BCT = remoteBCT
			}
			seq = nextSeq(seq)
			state = sxFile

		case sxFile:
			pkt := Packet{Seq: seq, Type: TypeFile, Data: marshalFileInfo(info)}
			if _, err := s.sendAndAwaitAck(ctx, pkt, s.cfg.BCT, TypeAck); err != nil {
				return err
			}
			seq = nextSeq(seq)
			state = sxData

		case sxData:
			buf := make([]byte, s.cfg.MaxData)
			n, rerr := src.Read(buf)
			if n > 0 {
				pkt := Packet{Seq: seq, Type: TypeData, Data: buf[:n]}
				if _, err := s.sendAndAwaitAck(ctx, pkt, s.cfg.BCT, TypeAck); err != nil {
					return err
				}
				seq = nextSeq(seq)
			}
			if rerr != nil {
				state = sxEOF
			}

		case sxEOF:
			pkt := Packet{Seq: seq, Type: TypeEOF}
			if _, err := s.sendAndAwaitAck(ctx, pkt, s.cfg.BCT, TypeAck); err != nil {
				return err
			}
			seq = nextSeq(seq)
			state = sxBreak

		case sxBreak:
			pkt := Packet{Seq: seq, Type: TypeEOT}
			if _, err := s.sendAndAwaitAck(ctx, pkt, s.cfg.BCT, TypeAck); err != nil {
				return err
			}
			state = sxDone
		}
	}

	return nil
}

// sendAndAwaitAck transmits pkt and retries on timeout or NAK until
// the matching ACK (or any reply of wantType) arrives, enforcing both
// retry caps (§4.H).
func (s *Session) sendAndAwaitAck(ctx context.Context, pkt Packet, bct int, wantType byte) (Packet, error) {
	framed := Encode(pkt, bct)
	s.win.Add(pkt)
	defer s.win.Ack(pkt.Seq)

	for {
		if ctx.Err() != nil {
			return Packet{}, oerr.ErrUserCancel
		}
		if s.deadlineExceeded() {
			return Packet{}, oerr.ErrTransferTimeout
		}

		if err := s.io.Txd(framed); err != nil {
			return Packet{}, fmt.Errorf("kermit: txd: %w", err)
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

		reply, derr := Decode(raw, bct)
		if derr != nil {
			if nerr := s.noteNak(); nerr != nil {
				return Packet{}, nerr
			}
			continue
		}

		if reply.Type == TypeNak {
			if nerr := s.noteNak(); nerr != nil {
				return Packet{}, nerr
			}
			continue
		}
		if reply.Type != wantType {
			continue
		}

		s.noteSuccess()
		return reply, nil
	}
}

func (s *Session) sendErrorBestEffort(seq byte, msg string) {
	pkt := Packet{Seq: seq, Type: TypeError, Data: []byte(msg)}
	s.io.Txd(Encode(pkt, s.cfg.BCT))
}

func nextSeq(seq byte) byte { return (seq + 1) & 0x3f }
