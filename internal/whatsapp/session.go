package whatsapp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tubecast/internal/models"
	"tubecast/internal/notify"
	"tubecast/pkg/logger"
)

// State is a session's position in the connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StatePairing
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StatePairing:
		return "pairing"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ContentSource provides the video metadata and thumbnail for a dispatch.
type ContentSource interface {
	LatestVideo(ctx context.Context, channelID string) *models.VideoRecord
	Thumbnail(ctx context.Context, url string) []byte
}

// Store is the slice of the persistence layer sessions write to.
type Store interface {
	ReplaceGroups(userID string, groups []models.Group) error
	AddStats(userID string, messages, videos int) error
}

// EventSink receives state-machine transition notifications for the
// real-time push layer.
type EventSink interface {
	QRCode(userID, payload string)
	ConnectionStatus(userID string, connected bool)
	GroupsLoaded(userID string, groups []models.Group)
	ConnectionError(userID, message string)
}

// Options tunes session behavior.
type Options struct {
	ChannelID      string
	ReconnectDelay time.Duration
	SendDelay      time.Duration
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	State       State          `json:"state"`
	Connected   bool           `json:"connected"`
	Groups      []models.Group `json:"groups"`
	Attempt     int            `json:"reconnectAttempt,omitempty"`
	NextRetryAt *time.Time     `json:"nextRetryAt,omitempty"`
}

// Session owns one user's WhatsApp connection state machine: pairing,
// reconnect with delay, group discovery and outbound dispatch.
type Session struct {
	userID    string
	transport Transport
	store     Store
	source    ContentSource
	sink      EventSink
	opts      Options
	log       *logger.Logger

	mu          sync.Mutex
	state       State
	groups      []models.Group
	attempt     int
	nextRetryAt time.Time
	reconnect   *time.Timer

	dispatching atomic.Bool
}

// NewSession wires a session over the given transport and registers its
// event handler. The session starts Disconnected.
func NewSession(userID string, transport Transport, store Store, source ContentSource, sink EventSink, opts Options, log *logger.Logger) *Session {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}

	s := &Session{
		userID:    userID,
		transport: transport,
		store:     store,
		source:    source,
		sink:      sink,
		opts:      opts,
		log:       log.With("user", userID),
	}
	transport.OnEvent(s.handleEvent)
	return s
}

// UserID returns the owning user's id.
func (s *Session) UserID() string {
	return s.userID
}

// Connect opens the transport. A no-op while pairing or connected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StatePairing || s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.cancelReconnectLocked()
	// The transport reports actual outcomes asynchronously; pairing is the
	// first observable state of a connect attempt.
	s.state = StatePairing
	s.mu.Unlock()

	if err := s.transport.Connect(ctx); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()

		s.log.Error("Failed to connect: %v", err)
		s.sink.ConnectionError(s.userID, err.Error())
		return err
	}
	return nil
}

// IsConnected reports whether the session is in the Connected state.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}

// Status returns a snapshot of the session's state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		Connected: s.state == StateConnected,
		Groups:    append([]models.Group(nil), s.groups...),
	}
	if s.state == StateReconnecting {
		st.Attempt = s.attempt
		retry := s.nextRetryAt
		st.NextRetryAt = &retry
	}
	return st
}

// Groups returns the group list from the last discovery. Only non-empty in
// the Connected state.
func (s *Session) Groups() []models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Group(nil), s.groups...)
}

// Disconnect tears the session down and purges on-disk credentials so the
// next connect starts a fresh pairing flow. Idempotent.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	s.cancelReconnectLocked()
	wasDisconnected := s.state == StateDisconnected
	s.state = StateDisconnected
	s.groups = nil
	s.attempt = 0
	s.mu.Unlock()

	if err := s.transport.Logout(ctx); err != nil {
		s.log.Warn("Logout failed: %v", err)
	}
	s.transport.Disconnect()
	if err := s.transport.Purge(); err != nil {
		s.log.Error("Failed to purge credentials: %v", err)
	}

	if !wasDisconnected {
		s.sink.ConnectionStatus(s.userID, false)
	}
}

// Shutdown releases the transport without touching credentials, so a later
// process start can resume the session. Used on replace and process exit.
func (s *Session) Shutdown() {
	s.mu.Lock()
	s.cancelReconnectLocked()
	s.state = StateDisconnected
	s.groups = nil
	s.mu.Unlock()

	s.transport.Disconnect()
}

// Dispatch sends one round of notification content to the given groups.
// Returns false without sending when the session is not connected, a
// dispatch is already running, or no video is found. Group sends are
// sequential with a fixed inter-group delay; a failed group is logged and
// skipped, never aborting the rest. Stats count attempts.
func (s *Session) Dispatch(ctx context.Context, groupIDs []string) bool {
	if !s.IsConnected() {
		s.log.Warn("Dispatch skipped: session not connected")
		return false
	}

	if !s.dispatching.CompareAndSwap(false, true) {
		s.log.Warn("Dispatch skipped: another dispatch is in progress")
		return false
	}
	defer s.dispatching.Store(false)

	video := s.source.LatestVideo(ctx, s.opts.ChannelID)
	if video == nil {
		s.log.Info("Dispatch skipped: no video found")
		return false
	}

	msg := notify.Compose(video)
	thumbnail := s.source.Thumbnail(ctx, video.ThumbnailURL)
	if thumbnail == nil {
		s.log.Warn("Thumbnail unavailable, sending text only")
	}

	for i, groupID := range groupIDs {
		if i > 0 && s.opts.SendDelay > 0 {
			select {
			case <-time.After(s.opts.SendDelay):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				s.log.Warn("Dispatch cancelled after %d of %d groups", i, len(groupIDs))
				break
			}
		}

		if err := s.transport.SendText(ctx, groupID, msg.Text); err != nil {
			s.log.Error("Failed to send to group %s: %v", groupID, err)
			continue
		}
		if thumbnail != nil {
			if err := s.transport.SendImage(ctx, groupID, thumbnail, msg.Caption); err != nil {
				s.log.Error("Failed to send image to group %s: %v", groupID, err)
			}
		}
		s.log.Info("Notification sent to group %s", groupID)
	}

	if err := s.store.AddStats(s.userID, len(groupIDs), 1); err != nil {
		// Delivery already happened; a failed stat write must not fail the
		// dispatch.
		s.log.Error("Failed to update stats: %v", err)
	}
	return true
}

// handleEvent is the single entry point for transport notifications.
func (s *Session) handleEvent(ev ConnectionEvent) {
	switch ev := ev.(type) {
	case PairingEvent:
		s.mu.Lock()
		s.state = StatePairing
		s.groups = nil
		s.mu.Unlock()

		s.log.Info("Pairing code generated")
		s.sink.QRCode(s.userID, ev.Code)

	case OpenEvent:
		s.mu.Lock()
		s.cancelReconnectLocked()
		s.state = StateConnected
		s.attempt = 0
		s.mu.Unlock()

		s.log.Info("Connected")
		s.discoverGroups()
		s.sink.ConnectionStatus(s.userID, true)

	case ClosedEvent:
		s.handleClosed(ev)
	}
}

func (s *Session) handleClosed(ev ClosedEvent) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		// Explicit disconnect or shutdown already ran; nothing to resurrect.
		s.mu.Unlock()
		return
	}

	if ev.LoggedOut {
		s.cancelReconnectLocked()
		s.state = StateDisconnected
		s.groups = nil
		s.attempt = 0
		s.mu.Unlock()

		s.log.Warn("Logged out by remote: %v", ev.Err)
		s.transport.Disconnect()
		if err := s.transport.Purge(); err != nil {
			s.log.Error("Failed to purge credentials: %v", err)
		}
		s.sink.ConnectionStatus(s.userID, false)
		return
	}

	s.state = StateReconnecting
	s.groups = nil
	s.attempt++
	s.nextRetryAt = time.Now().Add(s.opts.ReconnectDelay)
	s.scheduleReconnectLocked()
	attempt := s.attempt
	s.mu.Unlock()

	s.log.Warn("Connection closed (%v), reconnecting in %s (attempt %d)",
		ev.Err, s.opts.ReconnectDelay, attempt)
	s.sink.ConnectionStatus(s.userID, false)
}

// scheduleReconnectLocked arms the reconnect timer. Caller holds s.mu.
func (s *Session) scheduleReconnectLocked() {
	s.cancelReconnectLocked()
	s.reconnect = time.AfterFunc(s.opts.ReconnectDelay, func() {
		s.mu.Lock()
		if s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		if err := s.transport.Connect(context.Background()); err != nil {
			s.handleClosed(ClosedEvent{Err: err})
		}
	})
}

// cancelReconnectLocked stops a pending reconnect so a disconnected session
// cannot be resurrected by a stale timer. Caller holds s.mu.
func (s *Session) cancelReconnectLocked() {
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
}

// discoverGroups enumerates the account's group conversations and replaces
// the session's list atomically.
func (s *Session) discoverGroups() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	groups, err := s.transport.JoinedGroups(ctx)
	if err != nil {
		s.log.Error("Failed to load groups: %v", err)
		return
	}

	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()

	if err := s.store.ReplaceGroups(s.userID, groups); err != nil {
		s.log.Error("Failed to persist groups: %v", err)
	}

	s.log.Info("%d groups loaded", len(groups))
	s.sink.GroupsLoaded(s.userID, groups)
}
