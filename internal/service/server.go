// Package service provides implementation of the core collector server.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shibida/go-dtu/internal/api"
	"github.com/shibida/go-dtu/internal/config"
	"github.com/shibida/go-dtu/internal/domain"
	"github.com/shibida/go-dtu/internal/parser"
	"github.com/shibida/go-dtu/internal/profile"
	"github.com/shibida/go-dtu/internal/protocol"
	"github.com/shibida/go-dtu/internal/session"
	"github.com/shibida/go-dtu/internal/validation"
)

// maxPendingBytes bounds the per-connection reassembly buffer. A bridge
// that streams garbage gets its buffer dropped rather than grown.
const maxPendingBytes = 4096

// DataCollectionServer manages inverter data collection, decoding and publishing.
type DataCollectionServer struct {
	config          *config.Config
	listener        net.Listener
	apiServer       *api.Server
	fleet           *domain.Fleet
	publisher       domain.MessagePublisher
	monitoring      domain.MonitoringService
	sessionManager  *session.SessionManager
	responseManager *protocol.ResponseManager
	codec           *protocol.FrameCodec
	validator       *validation.Validator
	pollTracker     *api.PollTracker
	clients         map[string]net.Conn
	clientMutex     sync.RWMutex
	done            chan struct{}
	logger          zerolog.Logger
	startTime       time.Time

	framesReceived   int64
	framesRejected   int64
	recordsCompleted int64
	pollsSent        int64
}

// NewDataCollectionServer creates a new data collection server instance.
func NewDataCollectionServer(cfg *config.Config, fleet *domain.Fleet,
	publisher domain.MessagePublisher, monitoring domain.MonitoringService) (*DataCollectionServer, error) {
	// Create logger with component context.
	logger := log.With().Str("component", "server").Logger()

	// Create session manager with 30 minute timeout
	sessionManager := session.NewSessionManager(30 * time.Minute)

	// Create server instance.
	server := &DataCollectionServer{
		config:          cfg,
		fleet:           fleet,
		publisher:       publisher,
		monitoring:      monitoring,
		sessionManager:  sessionManager,
		responseManager: protocol.NewResponseManager(),
		codec:           protocol.NewFrameCodec(),
		validator:       validation.NewValidator(validation.ValidationLevelStandard, logger),
		pollTracker:     api.NewPollTracker(logger),
		clients:         make(map[string]net.Conn),
		done:            make(chan struct{}),
		logger:          logger,
	}

	// Initialize HTTP API server if enabled. The collector itself serves
	// as its poll requester.
	if cfg.API.Enabled {
		server.apiServer = api.NewServer(cfg, fleet, sessionManager, server, server.pollTracker)
	}

	return server, nil
}

// Start initializes and starts all server components.
func (s *DataCollectionServer) Start(ctx context.Context) error {
	// Record start time.
	s.startTime = time.Now()

	// Start listening for TCP connections.
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start listener on %s: %w", addr, err)
	}
	s.listener = listener

	s.logger.Info().
		Str("address", addr).
		Msg("Server started")

	// Start HTTP API server if enabled.
	if s.apiServer != nil {
		if err := s.apiServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}

	// Start accepting connections in a goroutine
	go s.acceptConnections(ctx)

	return nil
}

// Stop gracefully shuts down all server components.
func (s *DataCollectionServer) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping server")

	// Signal shutdown
	close(s.done)

	// Close listener
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close listener")
		}
	}

	// Close all client connections
	s.clientMutex.Lock()
	for id, conn := range s.clients {
		if err := conn.Close(); err != nil {
			s.logger.Error().
				Str("client", id).
				Err(err).
				Msg("Failed to close client connection")
		}
	}
	s.clientMutex.Unlock()

	// Stop API server
	if s.apiServer != nil {
		if err := s.apiServer.Stop(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Failed to stop API server")
		}
	}

	// Close session manager
	if s.sessionManager != nil {
		s.sessionManager.Close()
	}

	// Close message publisher
	if err := s.publisher.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to close message publisher")
	}

	// Close monitoring service
	if err := s.monitoring.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to close monitoring service")
	}

	return nil
}

// Addr returns the address the bridge listener is bound to.
func (s *DataCollectionServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptConnections handles incoming TCP connections.
func (s *DataCollectionServer) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
			// Accept new connection
			conn, err := s.listener.Accept()
			if err != nil {
				// Check if server is shutting down
				select {
				case <-s.done:
					return
				case <-ctx.Done():
					return
				default:
					if isClosedConnError(err) {
						return
					}
					s.logger.Error().Err(err).Msg("Failed to accept connection")
					continue
				}
			}

			// Handle connection in a new goroutine
			go s.handleConnection(ctx, conn)
		}
	}
}

// isClosedConnError checks if the error is due to a closed network connection.
func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// handleConnection processes data from a bridge connection.
func (s *DataCollectionServer) handleConnection(ctx context.Context, conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()

	sess := s.setupConnectionSession(conn, clientAddr)
	defer s.cleanupConnection(conn, clientAddr, sess)

	s.logger.Info().
		Str("address", clientAddr).
		Str("session_id", sess.ID).
		Msg("Bridge connected")

	s.runConnectionLoop(ctx, conn, sess, clientAddr)
}

// setupConnectionSession creates and initializes a session for the connection.
func (s *DataCollectionServer) setupConnectionSession(conn net.Conn, clientAddr string) *session.Session {
	sess := s.sessionManager.CreateSession(conn)

	s.clientMutex.Lock()
	s.clients[clientAddr] = conn
	s.clientMutex.Unlock()

	return sess
}

// cleanupConnection handles cleanup when a connection ends.
func (s *DataCollectionServer) cleanupConnection(conn net.Conn, clientAddr string, sess *session.Session) {
	if err := conn.Close(); err != nil && !isClosedConnError(err) {
		s.logger.Error().Err(err).Msg("Failed to close client connection")
	}

	s.clientMutex.Lock()
	delete(s.clients, clientAddr)
	s.clientMutex.Unlock()

	// Remove session
	s.sessionManager.RemoveSession(sess.ID)
}

// runConnectionLoop reads the raw byte stream and feeds it to the frame splitter.
func (s *DataCollectionServer) runConnectionLoop(ctx context.Context, conn net.Conn, sess *session.Session, clientAddr string) {
	buf := make([]byte, 4096)
	var pending []byte

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
			// Set read deadline
			if err := conn.SetReadDeadline(time.Now().Add(30 * time.Second)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set read deadline")
				return
			}

			n, err := conn.Read(buf)
			if err != nil {
				if s.handleReadError(err, clientAddr, sess.ID) {
					continue
				}
				return
			}

			if n == 0 {
				continue
			}

			sess.UpdateActivity()
			sess.AddBytesReceived(int64(n))

			pending = append(pending, buf[:n]...)
			pending = s.drainFrames(ctx, sess, pending)

			if len(pending) > maxPendingBytes {
				s.logger.Warn().
					Str("session_id", sess.ID).
					Int("bytes", len(pending)).
					Msg("Dropping oversized reassembly buffer")
				pending = nil
			}
		}
	}
}

// handleReadError processes read errors and determines if the loop should continue.
func (s *DataCollectionServer) handleReadError(err error, clientAddr, sessionID string) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// Just a timeout, continue
		return true
	}

	// Log disconnection and exit
	s.logger.Info().
		Str("address", clientAddr).
		Str("session_id", sessionID).
		Err(err).
		Msg("Bridge disconnected")
	return false
}

// drainFrames cuts complete frames out of the pending byte stream and
// processes them. The returned remainder starts at a plausible frame
// boundary or is too short to judge.
func (s *DataCollectionServer) drainFrames(ctx context.Context, sess *session.Session, pending []byte) []byte {
	for {
		// Resync to the next start byte.
		start := 0
		for start < len(pending) && pending[start] != protocol.FrameStartByte {
			start++
		}
		if start > 0 {
			s.logger.Debug().
				Str("session_id", sess.ID).
				Int("bytes", start).
				Msg("Skipped stray bytes before frame start")
			pending = pending[start:]
		}

		if len(pending) < 3 {
			return pending
		}

		size, err := protocol.FrameSize(pending)
		if err != nil {
			// Implausible header. Drop the start byte and rescan.
			pending = pending[1:]
			continue
		}
		if len(pending) < size {
			return pending
		}

		s.processRawFrame(ctx, sess, pending[:size])
		pending = pending[size:]
	}
}

// processRawFrame decodes, validates and routes one wire frame.
func (s *DataCollectionServer) processRawFrame(ctx context.Context, sess *session.Session, raw []byte) {
	atomic.AddInt64(&s.framesReceived, 1)

	frame, err := s.codec.Decode(raw)
	if err != nil {
		s.rejectFrame(sess, raw, err)
		return
	}

	label := commandLabel(frame)
	metadata := map[string]interface{}{
		"session_id": sess.ID,
		"serial":     profile.FormatSerial(frame.Serial),
	}
	if result := s.validator.ValidateFrame(raw, label, metadata); !result.Valid {
		s.rejectFrame(sess, raw, fmt.Errorf("validation failed: %s", result.Summary()))
		return
	}

	switch {
	case frame.IsResponse():
		// A bridge acknowledged one of our requests. Nothing to ingest.
	case frame.Command == protocol.CommandHeartbeat:
		s.handleHeartbeat(sess, frame)
	case frame.Command == protocol.CommandStatistics:
		s.handleStatistics(ctx, sess, frame)
	default:
		s.logger.Debug().
			Str("session_id", sess.ID).
			Uint8("command", frame.Command).
			Msg("Ignoring unknown command")
	}

	// The ack leaves only after ingestion, so a bridge that waits for it
	// knows the record has been handled.
	s.respondToFrame(sess, frame)
}

// rejectFrame counts a dropped frame and charges the failure against the
// addressed inverter when the header still identifies one.
func (s *DataCollectionServer) rejectFrame(sess *session.Session, raw []byte, reason error) {
	atomic.AddInt64(&s.framesRejected, 1)
	sess.IncrementErrorCount()

	if info := s.codec.ParseFrameInfo(raw); info.IsValid {
		if inv, ok := s.fleet.GetInverter(info.Serial); ok {
			inv.Statistics.IncrementRxFailureCount()
		}
	}

	s.logger.Warn().
		Str("session_id", sess.ID).
		Err(reason).
		Msg("Rejected frame")
}

// commandLabel names a frame's command for validation and logging.
func commandLabel(frame *protocol.Frame) string {
	switch frame.Command &^ protocol.AckFlag {
	case protocol.CommandHeartbeat:
		return "heartbeat"
	case protocol.CommandStatistics:
		return "statistics"
	case protocol.CommandPoll:
		return "poll"
	default:
		return "generic"
	}
}

// respondToFrame sends the protocol-mandated answer for a frame, if any.
func (s *DataCollectionServer) respondToFrame(sess *session.Session, frame *protocol.Frame) {
	response, err := s.responseManager.HandleIncomingFrame(frame)
	if err != nil {
		s.logger.Debug().
			Str("session_id", sess.ID).
			Err(err).
			Msg("Failed to generate response")
		return
	}
	if response == nil {
		return
	}

	if err := s.sendToSession(sess, response.Data); err != nil {
		s.logger.Error().
			Str("session_id", sess.ID).
			Err(err).
			Msg("Failed to send response")
		return
	}

	sess.UpdateLastCommand()
	s.logger.Debug().
		Str("session_id", sess.ID).
		Str("response_hex", protocol.FormatResponse(response)).
		Msg("Response sent")
}

// sendToSession writes wire data to a session under a write deadline.
func (s *DataCollectionServer) sendToSession(sess *session.Session, data []byte) error {
	if sess.Connection != nil {
		if err := sess.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	return sess.Send(data)
}

// handleHeartbeat marks the session as an identified bridge.
func (s *DataCollectionServer) handleHeartbeat(sess *session.Session, frame *protocol.Frame) {
	version := ""
	if len(frame.Payload) > 0 {
		version = string(frame.Payload)
	}
	sess.SetDeviceInfo(session.DeviceTypeBridge, profile.FormatSerial(frame.Serial), version)

	if sess.GetState() == session.SessionStateConnected {
		sess.SetState(session.SessionStateIdentified)
	}

	s.logger.Debug().
		Str("session_id", sess.ID).
		Str("bridge", profile.FormatSerial(frame.Serial)).
		Msg("Heartbeat")
}

// handleStatistics feeds a statistics fragment into the addressed
// inverter's reassembly buffer and finalizes the record on the last one.
func (s *DataCollectionServer) handleStatistics(ctx context.Context, sess *session.Session, frame *protocol.Frame) {
	inv, ok := s.fleet.GetInverter(frame.Serial)
	if !ok {
		s.logger.Debug().
			Str("session_id", sess.ID).
			Str("serial", profile.FormatSerial(frame.Serial)).
			Msg("Statistics for unregistered inverter")
		return
	}

	sess.TrackInverter(frame.Serial)
	if sess.GetState() != session.SessionStateActive {
		sess.SetState(session.SessionStateActive)
	}

	stats := inv.Statistics
	if frame.FragmentIndex() == 1 {
		stats.ClearBuffer()
	}

	if err := stats.AppendFragment(frame.BufferOffset(), frame.Payload); err != nil {
		stats.IncrementRxFailureCount()
		s.logger.Warn().
			Str("serial", inv.SerialString()).
			Int("fragment", frame.FragmentIndex()).
			Err(err).
			Msg("Fragment rejected")
		return
	}

	if !frame.IsFinalFragment() {
		return
	}

	if stats.GetBufferLength() != stats.GetExpectedByteCount() {
		stats.IncrementRxFailureCount()
		s.logger.Warn().
			Str("serial", inv.SerialString()).
			Int("received", stats.GetBufferLength()).
			Int("expected", stats.GetExpectedByteCount()).
			Msg("Incomplete statistics record")
		return
	}

	stats.EndAppendFragment()
	stats.SetLastUpdate(time.Now())
	atomic.AddInt64(&s.recordsCompleted, 1)

	s.logger.Debug().
		Str("serial", inv.SerialString()).
		Int("bytes", stats.GetBufferLength()).
		Msg("Statistics record completed")

	s.validateReadings(inv)
	s.publishInverter(ctx, inv)
	s.pollTracker.Complete(frame.Serial)
}

// validateReadings runs plausibility checks on freshly decoded values and
// logs anything suspicious. Publishing proceeds regardless.
func (s *DataCollectionServer) validateReadings(inv *domain.Inverter) {
	stats := inv.Statistics

	for _, channelType := range stats.GetChannelTypes() {
		for _, channel := range stats.GetChannelsByType(channelType) {
			readings := make(map[string]float64)
			for _, field := range parser.AllFields() {
				if !stats.HasChannelFieldValue(channelType, channel, field) {
					continue
				}
				name := stats.GetChannelFieldName(channelType, channel, field)
				readings[name] = stats.GetChannelFieldValue(channelType, channel, field)
			}

			context := map[string]interface{}{
				"serial":       inv.SerialString(),
				"channel_type": channelType.String(),
				"channel":      int(channel),
			}
			result := s.validator.ValidateReadings(readings, context)
			if !result.Valid || result.HasWarnings() {
				s.logger.Warn().
					Str("serial", inv.SerialString()).
					Str("channel_type", channelType.String()).
					Int("channel", int(channel)).
					Str("validation", result.Summary()).
					Msg("Suspicious telemetry readings")
			}
		}
	}
}

// publishInverter pushes a completed record to the MQTT publisher and the
// monitoring service.
func (s *DataCollectionServer) publishInverter(ctx context.Context, inv *domain.Inverter) {
	if err := s.publisher.PublishInverter(ctx, inv); err != nil {
		s.logger.Error().
			Str("serial", inv.SerialString()).
			Err(err).
			Msg("Failed to publish inverter data")
	}

	if err := s.monitoring.Send(ctx, s.fleet); err != nil {
		s.logger.Error().Err(err).Msg("Failed to send to monitoring service")
	}
}

// RequestPoll asks the bridge that last carried an inverter's data to poll
// it now. With no known carrier the request goes to every connected bridge.
func (s *DataCollectionServer) RequestPoll(serial uint64) error {
	if _, ok := s.fleet.GetInverter(serial); !ok {
		return fmt.Errorf("inverter %s is not registered", profile.FormatSerial(serial))
	}

	_, data, err := s.codec.CreatePollCommand(serial)
	if err != nil {
		return fmt.Errorf("failed to build poll request: %w", err)
	}

	if sess, ok := s.sessionManager.GetSessionByInverter(serial); ok {
		return s.sendPollRequest(sess, serial, data)
	}

	sessions := s.sessionManager.GetSessions()
	if len(sessions) == 0 {
		return fmt.Errorf("no bridge connected")
	}

	sent := 0
	for _, sess := range sessions {
		if err := s.sendPollRequest(sess, serial, data); err != nil {
			s.logger.Warn().
				Str("session_id", sess.ID).
				Err(err).
				Msg("Poll broadcast failed on session")
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("poll request reached no bridge")
	}
	return nil
}

// sendPollRequest writes one poll request frame to a bridge session.
func (s *DataCollectionServer) sendPollRequest(sess *session.Session, serial uint64, data []byte) error {
	if err := s.sendToSession(sess, data); err != nil {
		return fmt.Errorf("failed to send poll request: %w", err)
	}

	sess.UpdateLastCommand()
	atomic.AddInt64(&s.pollsSent, 1)

	s.logger.Debug().
		Str("session_id", sess.ID).
		Str("serial", profile.FormatSerial(serial)).
		Msg("Poll request sent")
	return nil
}

// GetMetrics returns server metrics including frame counters.
func (s *DataCollectionServer) GetMetrics() map[string]interface{} {
	metrics := make(map[string]interface{})

	// Server metrics
	metrics["uptime"] = time.Since(s.startTime).Seconds()
	metrics["start_time"] = s.startTime

	// Client connection metrics
	s.clientMutex.RLock()
	metrics["active_connections"] = len(s.clients)
	s.clientMutex.RUnlock()

	// Session metrics
	metrics["session_count"] = s.sessionManager.GetSessionCount()
	allSessions := s.sessionManager.GetAllSessions()

	// Count sessions by state
	stateCount := make(map[string]int)
	deviceTypeCount := make(map[string]int)

	for _, sessionStat := range allSessions {
		stateCount[sessionStat.State.String()]++
		deviceTypeCount[sessionStat.DeviceType.String()]++
	}

	metrics["session_states"] = stateCount
	metrics["device_types"] = deviceTypeCount

	// Frame pipeline metrics
	metrics["frames_received"] = atomic.LoadInt64(&s.framesReceived)
	metrics["frames_rejected"] = atomic.LoadInt64(&s.framesRejected)
	metrics["records_completed"] = atomic.LoadInt64(&s.recordsCompleted)
	metrics["polls_sent"] = atomic.LoadInt64(&s.pollsSent)

	return metrics
}
