// Package session implements the session server: a TCP listener that
// accepts Teltonika device connections, runs the
// AwaitIdentifier -> Accepted -> Closed state machine per connection,
// and hands fully-framed packets to the ingestion service via a
// bounded worker pool so one slow device can't starve the others.
package session

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/codec"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingest"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingesterr"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/metrics"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
)

const (
	maxIdentifierLen = 64
	identifierLenSz  = 2
	ackAccept        = 0x01
	ackReject        = 0x00
)

// Config bounds one Server's resource usage.
type Config struct {
	FrameCapBytes int
	IdleTimeout   time.Duration
	Workers       int
	// RateBytesPerSec bounds how fast one connection may feed the
	// worker pool; Burst defaults to FrameCapBytes.
	RateBytesPerSec float64
}

// Server accepts connections on a TCP listener and ingests the
// Codec8/Codec8-Extended packets each one sends.
type Server struct {
	cfg      Config
	ingestor *ingest.Service
	work     chan func()

	mu       sync.Mutex
	sessions map[net.Conn]struct{}

	wg sync.WaitGroup
}

func New(cfg Config, ingestor *ingest.Service) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}
	s := &Server{
		cfg:      cfg,
		ingestor: ingestor,
		work:     make(chan func(), cfg.Workers*4),
		sessions: map[net.Conn]struct{}{},
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *Server) worker() {
	defer s.wg.Done()
	for job := range s.work {
		job()
	}
}

// Serve accepts connections on ln until ln is closed, running one
// cooperative task per connection.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.mu.Lock()
		s.sessions[conn] = struct{}{}
		s.mu.Unlock()

		go s.handle(conn)
	}
}

// Close stops accepting new work and waits for in-flight workers to
// drain. Already-open connections are closed, aborting any in-flight
// ingestion best-effort.
func (s *Server) Close() {
	s.mu.Lock()
	for conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()
	close(s.work)
	s.wg.Wait()
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.sessions, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	identifier, err := readIdentifier(conn)
	if err != nil {
		log.Warnf("session: %s: identifier read failed: %v", conn.RemoteAddr(), err)
		return
	}

	// Acceptance is unconditional at this stage; identifier
	// resolution happens per-packet during ingestion.
	if _, err := conn.Write([]byte{ackAccept}); err != nil {
		return
	}

	s.readLoop(conn, identifier)
}

func readIdentifier(conn net.Conn) (string, error) {
	lenBuf := make([]byte, identifierLenSz)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return "", err
	}
	length := binary.BigEndian.Uint16(lenBuf)
	if length == 0 || length > maxIdentifierLen {
		conn.Write([]byte{ackReject})
		return "", ingesterr.ErrBadIdentifier
	}

	idBuf := make([]byte, length)
	if _, err := io.ReadFull(conn, idBuf); err != nil {
		return "", err
	}
	for _, b := range idBuf {
		if !unicode.IsPrint(rune(b)) {
			conn.Write([]byte{ackReject})
			return "", ingesterr.ErrBadIdentifier
		}
	}
	return string(idBuf), nil
}

// readLoop buffers bytes off conn and frames zero or more complete
// packets per read.
func (s *Server) readLoop(conn net.Conn, identifier string) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RateBytesPerSec), s.cfg.FrameCapBytes)
	if s.cfg.RateBytesPerSec <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	r := bufio.NewReader(conn)
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)

	idleTimeout := s.cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))

		n, err := r.Read(chunk)
		if n > 0 {
			if err := limiter.WaitN(context.Background(), n); err != nil {
				log.Warnf("session: %s: %v", conn.RemoteAddr(), err)
				return
			}
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debugf("session: %s: read error: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if declared, exceeded := frameWouldExceedCap(buf, s.cfg.FrameCapBytes); exceeded {
			log.Warnf("session: %s: oversized frame (%d bytes)", conn.RemoteAddr(), declared)
			return
		}

		buf = s.drainFrames(conn, identifier, buf)
	}
}

// drainFrames slices and ingests every complete packet currently
// buffered, returning the unconsumed remainder.
func (s *Server) drainFrames(conn net.Conn, identifier string, buf []byte) []byte {
	for {
		if len(buf) < 8 || len(buf) < 8+int(binary.BigEndian.Uint32(buf[4:8]))+4 {
			return buf // wait for more bytes
		}
		packet, consumed, err := codec.Decode(buf)
		if err != nil {
			if ingesterr.IsParseFailure(err) {
				metrics.IncDropped()
				log.Warnf("session: %s: parse failure: %v, frame=%s", conn.RemoteAddr(), err, codec.HexDump(buf, 256))
				// Drop the unparseable bytes we know about and wait
				// for more; the device retransmits per protocol.
				return nil
			}
			log.Errorf("session: %s: decode error: %v", conn.RemoteAddr(), err)
			return nil
		}

		recordCount := len(packet.Records)
		done := make(chan struct{})
		s.submit(func() {
			defer close(done)
			s.ingestPacket(conn, packet, identifier)
		})
		<-done

		ackPacket(conn, recordCount)

		buf = buf[consumed:]
		if len(buf) == 0 {
			return buf
		}
	}
}

func (s *Server) ingestPacket(conn net.Conn, packet *codec.Packet, identifier string) {
	result, err := s.ingestor.Ingest(packet, identifier)
	if err != nil {
		if errors.Is(err, ingesterr.ErrUnauthorizedDevice) {
			log.Warnf("session: %s: unauthorized device %q", conn.RemoteAddr(), identifier)
			return
		}
		log.Errorf("session: %s: ingest failed: %v", conn.RemoteAddr(), err)
		return
	}
	log.Debugf("session: %s: ingested %d records (%d skipped)", conn.RemoteAddr(), result.RecordsProcessed, result.RecordsSkipped)
}

func (s *Server) submit(job func()) {
	s.work <- job
}

// ackPacket sends the 4-byte big-endian record-count acknowledgement,
// regardless of per-record ingestion outcome.
func ackPacket(conn net.Conn, recordCount int) {
	ack := make([]byte, 4)
	binary.BigEndian.PutUint32(ack, uint32(recordCount))
	if _, err := conn.Write(ack); err != nil {
		log.Debugf("session: %s: ack write failed: %v", conn.RemoteAddr(), err)
	}
}

// frameWouldExceedCap reports whether the declared length of the
// packet at the head of buf (once enough bytes have arrived to read
// it) would exceed capBytes.
func frameWouldExceedCap(buf []byte, capBytes int) (int, bool) {
	if capBytes <= 0 || len(buf) < 8 {
		return 0, len(buf) > maxSaneCap(capBytes)
	}
	dataLength := int(binary.BigEndian.Uint32(buf[4:8]))
	total := 8 + dataLength + 4
	if total > capBytes {
		return total, true
	}
	return total, false
}

func maxSaneCap(capBytes int) int {
	if capBytes <= 0 {
		return 1 << 30
	}
	return capBytes
}
