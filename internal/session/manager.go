// Package session tracks radio bridge connections and the inverters heard through them.
package session

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"
)

// SessionState represents the current state of a bridge session.
type SessionState int

const (
	SessionStateConnected SessionState = iota
	SessionStateIdentified
	SessionStateActive
	SessionStateDisconnected
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case SessionStateConnected:
		return "connected"
	case SessionStateIdentified:
		return "identified"
	case SessionStateActive:
		return "active"
	case SessionStateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DeviceType represents the type of connected device.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeBridge
	DeviceTypeSimulator
)

// String returns the string representation of the device type.
func (d DeviceType) String() string {
	switch d {
	case DeviceTypeBridge:
		return "bridge"
	case DeviceTypeSimulator:
		return "simulator"
	default:
		return "unknown"
	}
}

// Session represents a connection session with a bridge.
type Session struct {
	ID              string
	DeviceType      DeviceType
	SerialNumber    string
	RemoteAddr      string
	LocalAddr       string
	State           SessionState
	ConnectedAt     time.Time
	LastActivity    time.Time
	LastCommand     time.Time
	BytesReceived   int64
	BytesSent       int64
	PacketsReceived int64
	PacketsSent     int64
	ErrorCount      int64
	Connection      net.Conn
	Version         string
	inverters       map[uint64]time.Time
	mutex           sync.RWMutex
}

// NewSession creates a new session for a bridge connection.
func NewSession(conn net.Conn) *Session {
	now := time.Now()
	return &Session{
		ID:           generateSessionID(conn.RemoteAddr().String(), now),
		DeviceType:   DeviceTypeUnknown,
		RemoteAddr:   conn.RemoteAddr().String(),
		LocalAddr:    conn.LocalAddr().String(),
		State:        SessionStateConnected,
		ConnectedAt:  now,
		LastActivity: now,
		Connection:   conn,
		inverters:    make(map[uint64]time.Time),
	}
}

// UpdateActivity updates the last activity time for the session.
func (s *Session) UpdateActivity() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActivity = time.Now()
}

// UpdateLastCommand updates the last command time for the session.
func (s *Session) UpdateLastCommand() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastCommand = time.Now()
}

// SetState safely updates the session state.
func (s *Session) SetState(state SessionState) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.State = state
}

// GetState safely retrieves the session state.
func (s *Session) GetState() SessionState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.State
}

// SetDeviceInfo updates device information for the session.
func (s *Session) SetDeviceInfo(deviceType DeviceType, serialNumber, version string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.DeviceType = deviceType
	s.SerialNumber = serialNumber
	s.Version = version
}

// TrackInverter records that a statistics frame for an inverter arrived
// through this session.
func (s *Session) TrackInverter(serial uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.inverters[serial] = time.Now()
}

// InverterLastSeen returns when this session last carried data for an inverter.
func (s *Session) InverterLastSeen(serial uint64) (time.Time, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	seen, ok := s.inverters[serial]
	return seen, ok
}

// AddBytesReceived safely adds to the bytes received counter.
func (s *Session) AddBytesReceived(bytes int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.BytesReceived += bytes
	s.PacketsReceived++
}

// AddBytesSent safely adds to the bytes sent counter.
func (s *Session) AddBytesSent(bytes int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.BytesSent += bytes
	s.PacketsSent++
}

// IncrementErrorCount safely increments the error counter.
func (s *Session) IncrementErrorCount() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ErrorCount++
}

// Send writes data to the session connection. Writes are serialized
// through the session mutex so acks and poll requests cannot interleave.
func (s *Session) Send(data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.Connection == nil || s.State == SessionStateDisconnected {
		return fmt.Errorf("session %s is not connected", s.ID)
	}

	n, err := s.Connection.Write(data)
	if err != nil {
		s.ErrorCount++
		return err
	}

	s.BytesSent += int64(n)
	s.PacketsSent++
	return nil
}

// GetStats returns a copy of the session statistics.
func (s *Session) GetStats() SessionStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	inverters := make([]uint64, 0, len(s.inverters))
	for serial := range s.inverters {
		inverters = append(inverters, serial)
	}
	sort.Slice(inverters, func(i, j int) bool { return inverters[i] < inverters[j] })

	return SessionStats{
		ID:              s.ID,
		DeviceType:      s.DeviceType,
		SerialNumber:    s.SerialNumber,
		RemoteAddr:      s.RemoteAddr,
		State:           s.State,
		ConnectedAt:     s.ConnectedAt,
		LastActivity:    s.LastActivity,
		LastCommand:     s.LastCommand,
		BytesReceived:   s.BytesReceived,
		BytesSent:       s.BytesSent,
		PacketsReceived: s.PacketsReceived,
		PacketsSent:     s.PacketsSent,
		ErrorCount:      s.ErrorCount,
		Version:         s.Version,
		Inverters:       inverters,
	}
}

// IsExpired checks if the session has expired based on inactivity.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return time.Since(s.LastActivity) > timeout
}

// Close closes the session and its underlying connection.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.State = SessionStateDisconnected
	if s.Connection != nil {
		return s.Connection.Close()
	}
	return nil
}

// SessionStats represents session statistics for external consumption.
type SessionStats struct {
	ID              string        `json:"id"`
	DeviceType      DeviceType    `json:"device_type"`
	SerialNumber    string        `json:"serial_number"`
	RemoteAddr      string        `json:"remote_addr"`
	State           SessionState  `json:"state"`
	ConnectedAt     time.Time     `json:"connected_at"`
	LastActivity    time.Time     `json:"last_activity"`
	LastCommand     time.Time     `json:"last_command"`
	BytesReceived   int64         `json:"bytes_received"`
	BytesSent       int64         `json:"bytes_sent"`
	PacketsReceived int64         `json:"packets_received"`
	PacketsSent     int64         `json:"packets_sent"`
	ErrorCount      int64         `json:"error_count"`
	Version         string        `json:"version"`
	Inverters       []uint64      `json:"inverters"`
	Duration        time.Duration `json:"duration"`
}

// SessionManager manages multiple bridge sessions.
type SessionManager struct {
	sessions       map[string]*Session
	sessionsByAddr map[string]*Session
	mutex          sync.RWMutex
	cleanupTicker  *time.Ticker
	stopCleanup    chan struct{}
	sessionTimeout time.Duration
}

// NewSessionManager creates a new session manager.
func NewSessionManager(sessionTimeout time.Duration) *SessionManager {
	sm := &SessionManager{
		sessions:       make(map[string]*Session),
		sessionsByAddr: make(map[string]*Session),
		sessionTimeout: sessionTimeout,
		stopCleanup:    make(chan struct{}),
	}

	// Start cleanup routine
	sm.startCleanupRoutine()

	return sm
}

// CreateSession creates a new session for a connection.
func (sm *SessionManager) CreateSession(conn net.Conn) *Session {
	session := NewSession(conn)

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	// Clean up any existing session for this address
	if existingSession, exists := sm.sessionsByAddr[session.RemoteAddr]; exists {
		delete(sm.sessions, existingSession.ID)
		existingSession.Close()
	}

	sm.sessions[session.ID] = session
	sm.sessionsByAddr[session.RemoteAddr] = session

	return session
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	session, exists := sm.sessions[id]
	return session, exists
}

// GetSessionByAddr retrieves a session by remote address.
func (sm *SessionManager) GetSessionByAddr(addr string) (*Session, bool) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	session, exists := sm.sessionsByAddr[addr]
	return session, exists
}

// GetSessionByInverter returns the session that most recently carried
// data for an inverter.
func (sm *SessionManager) GetSessionByInverter(serial uint64) (*Session, bool) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	var best *Session
	var bestSeen time.Time

	for _, session := range sm.sessions {
		if seen, ok := session.InverterLastSeen(serial); ok && seen.After(bestSeen) {
			best = session
			bestSeen = seen
		}
	}

	return best, best != nil
}

// GetSessions returns all active sessions.
func (sm *SessionManager) GetSessions() []*Session {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// GetAllSessions returns statistics for all active sessions.
func (sm *SessionManager) GetAllSessions() []SessionStats {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	stats := make([]SessionStats, 0, len(sm.sessions))
	now := time.Now()

	for _, session := range sm.sessions {
		sessionStats := session.GetStats()
		sessionStats.Duration = now.Sub(sessionStats.ConnectedAt)
		stats = append(stats, sessionStats)
	}

	return stats
}

// RemoveSession removes a session by ID.
func (sm *SessionManager) RemoveSession(id string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if session, exists := sm.sessions[id]; exists {
		delete(sm.sessionsByAddr, session.RemoteAddr)
		delete(sm.sessions, id)
		session.Close()
	}
}

// CleanupExpiredSessions removes expired sessions.
func (sm *SessionManager) CleanupExpiredSessions() int {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	var expiredSessions []string

	for id, session := range sm.sessions {
		if session.IsExpired(sm.sessionTimeout) {
			expiredSessions = append(expiredSessions, id)
		}
	}

	for _, id := range expiredSessions {
		if session, exists := sm.sessions[id]; exists {
			delete(sm.sessionsByAddr, session.RemoteAddr)
			delete(sm.sessions, id)
			session.Close()
		}
	}

	return len(expiredSessions)
}

// GetSessionCount returns the number of active sessions.
func (sm *SessionManager) GetSessionCount() int {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return len(sm.sessions)
}

// Close shuts down the session manager and closes all sessions.
func (sm *SessionManager) Close() {
	// Stop cleanup routine
	close(sm.stopCleanup)
	if sm.cleanupTicker != nil {
		sm.cleanupTicker.Stop()
	}

	// Close all sessions
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for _, session := range sm.sessions {
		session.Close()
	}

	sm.sessions = make(map[string]*Session)
	sm.sessionsByAddr = make(map[string]*Session)
}

// startCleanupRoutine starts a goroutine to periodically clean up expired sessions.
func (sm *SessionManager) startCleanupRoutine() {
	sm.cleanupTicker = time.NewTicker(time.Minute) // Run cleanup every minute

	go func() {
		for {
			select {
			case <-sm.cleanupTicker.C:
				cleaned := sm.CleanupExpiredSessions()
				if cleaned > 0 {
					// Log cleanup activity if needed
					_ = cleaned
				}
			case <-sm.stopCleanup:
				return
			}
		}
	}()
}

// generateSessionID generates a unique session ID.
func generateSessionID(addr string, timestamp time.Time) string {
	return addr + "_" + timestamp.Format("20060102_150405.000000")
}
