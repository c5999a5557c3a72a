package websocket

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// SessionCleanupService closes sessions that have been idle too long. An idle
// session still holds a speech capture and its conversation log.
type SessionCleanupService struct {
	hub         *Hub
	idleTimeout time.Duration
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
	now         func() time.Time
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(hub *Hub, idleTimeout, interval time.Duration, logger *zap.Logger) *SessionCleanupService {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &SessionCleanupService{
		hub:         hub,
		idleTimeout: idleTimeout,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started", zap.Duration("idleTimeout", s.idleTimeout))
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Session cleanup service stopped")
}

func (s *SessionCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup closes every session idle past the timeout
func (s *SessionCleanupService) runCleanup() int {
	closed := s.hub.ReapIdle(s.now().Add(-s.idleTimeout))
	if closed > 0 {
		s.logger.Info("Session cleanup completed", zap.Int("closed", closed))
	}
	return closed
}
