package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"tubecast/internal/models"
	"tubecast/pkg/logger"
)

// Transport is the session's view of one WhatsApp connection. The concrete
// implementation wraps a whatsmeow client; tests substitute fakes.
type Transport interface {
	// Connect opens the underlying connection. Pairing and connection
	// outcomes arrive asynchronously through the event handler.
	Connect(ctx context.Context) error
	// Disconnect releases the connection without touching credentials.
	Disconnect()
	// Logout invalidates the remote session.
	Logout(ctx context.Context) error
	// Purge removes the on-disk credential artifacts as one unit.
	Purge() error
	SendText(ctx context.Context, groupID, text string) error
	SendImage(ctx context.Context, groupID string, image []byte, caption string) error
	JoinedGroups(ctx context.Context) ([]models.Group, error)
	// OnEvent registers the single event handler. Must be called before
	// Connect.
	OnEvent(fn func(ConnectionEvent))
}

// meowTransport is the whatsmeow-backed Transport. Each user owns one
// credential database file under sessionDir so it can be removed
// atomically on disconnect.
type meowTransport struct {
	userID     string
	sessionDir string
	log        *logger.Logger

	mu        sync.Mutex
	container *sqlstore.Container
	client    *whatsmeow.Client
	handler   func(ConnectionEvent)
}

// NewTransport creates a whatsmeow transport for one user.
func NewTransport(userID, sessionDir string, log *logger.Logger) Transport {
	return &meowTransport{
		userID:     userID,
		sessionDir: sessionDir,
		log:        log.With("user", userID),
	}
}

func (t *meowTransport) dbPath() string {
	return filepath.Join(t.sessionDir, fmt.Sprintf("user_%s.db", t.userID))
}

// HasCredentials reports whether a credential database exists for the user,
// meaning a previous pairing survives and Connect can resume it without a
// new QR scan.
func HasCredentials(sessionDir, userID string) bool {
	_, err := os.Stat(filepath.Join(sessionDir, fmt.Sprintf("user_%s.db", userID)))
	return err == nil
}

func (t *meowTransport) OnEvent(fn func(ConnectionEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

func (t *meowTransport) emit(ev ConnectionEvent) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

// Connect lazily builds the client from the per-user credential database
// and opens the socket. When no credentials exist, whatsmeow emits QR
// events which surface as PairingEvents.
func (t *meowTransport) Connect(ctx context.Context) error {
	client, err := t.getClient(ctx)
	if err != nil {
		return err
	}

	if client.IsConnected() {
		return nil
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

func (t *meowTransport) getClient(ctx context.Context) (*whatsmeow.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return t.client, nil
	}

	if err := os.MkdirAll(t.sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	dbLog := waLog.Zerolog(t.log.Raw())
	container, err := sqlstore.New(ctx, "sqlite",
		fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", t.dbPath()), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Zerolog(t.log.Raw()))
	// The session state machine owns reconnection.
	client.EnableAutoReconnect = false
	client.AddEventHandler(t.handleMeowEvent)

	t.container = container
	t.client = client
	return client, nil
}

// handleMeowEvent maps whatsmeow's event types onto the closed
// ConnectionEvent set.
func (t *meowTransport) handleMeowEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.QR:
		if len(v.Codes) == 0 {
			return
		}
		// Terminal rendering for operators watching the process logs.
		qrterminal.GenerateWithConfig(v.Codes[0], qrterminal.Config{
			Level:     qrterminal.L,
			Writer:    os.Stdout,
			BlackChar: qrterminal.WHITE,
			WhiteChar: qrterminal.BLACK,
			QuietZone: 1,
		})
		t.emit(PairingEvent{Code: v.Codes[0]})
	case *events.Connected:
		t.emit(OpenEvent{})
	case *events.Disconnected:
		t.emit(ClosedEvent{})
	case *events.StreamError:
		t.emit(ClosedEvent{Err: fmt.Errorf("stream error: %s", v.Code)})
	case *events.LoggedOut:
		t.emit(ClosedEvent{LoggedOut: true, Err: fmt.Errorf("logged out: %s", v.Reason)})
	case *events.Message:
		// Inbound messages are observed but not acted on.
		t.log.Debug("Message received from %s", v.Info.Sender)
	}
}

func (t *meowTransport) Disconnect() {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
}

func (t *meowTransport) Logout(ctx context.Context) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil || client.Store.ID == nil {
		return nil
	}
	if err := client.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// Purge closes the credential container and deletes its database files so
// the next Connect starts a fresh pairing flow.
func (t *meowTransport) Purge() error {
	t.mu.Lock()
	container := t.container
	t.container = nil
	t.client = nil
	t.mu.Unlock()

	if container != nil {
		container.Close()
	}

	base := t.dbPath()
	for _, path := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credential file %s: %w", path, err)
		}
	}
	return nil
}

func (t *meowTransport) SendText(ctx context.Context, groupID, text string) error {
	client, jid, err := t.clientAndJID(groupID)
	if err != nil {
		return err
	}

	msg := &waE2E.Message{Conversation: proto.String(text)}
	if _, err := client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", groupID, err)
	}
	return nil
}

func (t *meowTransport) SendImage(ctx context.Context, groupID string, image []byte, caption string) error {
	client, jid, err := t.clientAndJID(groupID)
	if err != nil {
		return err
	}

	uploaded, err := client.Upload(ctx, image, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	msg := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			URL:           &uploaded.URL,
			Mimetype:      proto.String("image/jpeg"),
			Caption:       &caption,
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileLength:    &uploaded.FileLength,
			MediaKey:      uploaded.MediaKey,
			DirectPath:    &uploaded.DirectPath,
		},
	}
	if _, err := client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("failed to send image to %s: %w", groupID, err)
	}
	return nil
}

func (t *meowTransport) JoinedGroups(ctx context.Context) ([]models.Group, error) {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil {
		return nil, fmt.Errorf("client not initialized")
	}

	groups, err := client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	out := make([]models.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.Group{
			ID:           g.JID.String(),
			Name:         g.Name,
			Participants: len(g.Participants),
		})
	}
	return out, nil
}

func (t *meowTransport) clientAndJID(groupID string) (*whatsmeow.Client, types.JID, error) {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil {
		return nil, types.JID{}, fmt.Errorf("client not initialized")
	}

	jid, err := types.ParseJID(groupID)
	if err != nil {
		return nil, types.JID{}, fmt.Errorf("invalid group id %q: %w", groupID, err)
	}
	return client, jid, nil
}
