package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mgkeit/pairalert/internal/bot/auth"
	"github.com/mgkeit/pairalert/internal/bot/cleanup"
	"github.com/mgkeit/pairalert/internal/bot/credentials"
	"github.com/mgkeit/pairalert/internal/bot/password"
	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/bot/session"
	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/logging"
)

type stubSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *stubSender) Send(ctx context.Context, chatID int64, text string) (transport.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return transport.MessageRef{ChatID: chatID, MessageID: len(s.sent)}, nil
}

func (s *stubSender) SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) (transport.MessageRef, error) {
	return transport.MessageRef{ChatID: chatID}, nil
}

func (s *stubSender) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	return nil
}

func (s *stubSender) last(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return s.sent[len(s.sent)-1]
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestRouter(t *testing.T) (*Router, *principals.InMemoryRepository, *credentials.Service, *session.Tracker, *stubSender) {
	t.Helper()

	repo := principals.NewInMemoryRepository()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	creds := credentials.NewService(repo, password.NewHasher(bcrypt.MinCost), logger)
	sessions := session.NewTracker(repo, 120*time.Second)
	sender := &stubSender{}
	cleaner := cleanup.NewScheduler(sender, logger)
	t.Cleanup(cleaner.Stop)

	manager := auth.NewManager(repo, creds, sessions, sender, cleaner,
		"Test Issuer", time.Minute, logger)
	router := NewRouter(repo, creds, sessions, manager, sender, logger)

	return router, repo, creds, sessions, sender
}

// seedActive creates an admin with an established password and a live
// session, the state in which commands actually reach the dispatcher.
func seedActive(t *testing.T, creds *credentials.Service, sessions *session.Tracker, id int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, creds.AssignRole(ctx, id, principals.RoleAdmin))
	require.NoError(t, creds.EnsureCredentialSeed(ctx, id))
	require.NoError(t, creds.ChangePassword(ctx, id, "Strong123"))
	require.NoError(t, sessions.Authenticate(ctx, id))
}

func msg(id int64, text string) transport.Message {
	return transport.Message{ChatID: id, MessageID: 1, Text: text}
}

func TestDispatch_IgnoresStudents(t *testing.T) {
	t.Parallel()

	router, _, creds, _, sender := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, creds.AssignRole(ctx, 7, principals.RoleStudent))

	router.Dispatch(ctx, msg(7, "/whoami"))
	router.Dispatch(ctx, msg(999, "/whoami"))
	assert.Zero(t, sender.count())
}

func TestDispatch_Whoami(t *testing.T) {
	t.Parallel()

	router, _, creds, sessions, sender := newTestRouter(t)
	seedActive(t, creds, sessions, 42)

	router.Dispatch(context.Background(), msg(42, "/whoami"))
	assert.Contains(t, sender.last(t), "Role: admin")
	assert.Contains(t, sender.last(t), "/changepassword")
}

func TestDispatch_Logout(t *testing.T) {
	t.Parallel()

	router, _, creds, sessions, sender := newTestRouter(t)
	ctx := context.Background()
	seedActive(t, creds, sessions, 42)

	router.Dispatch(ctx, msg(42, "/logout"))
	assert.Equal(t, "Session ended.", sender.last(t))

	active, err := sessions.IsActive(ctx, 42)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestDispatch_UnknownCommandShowsHelp(t *testing.T) {
	t.Parallel()

	router, _, creds, sessions, sender := newTestRouter(t)
	seedActive(t, creds, sessions, 42)

	router.Dispatch(context.Background(), msg(42, "/frobnicate"))
	assert.Equal(t, helpText, sender.last(t))
}

func TestDispatch_TwoFactorStatus(t *testing.T) {
	t.Parallel()

	router, _, creds, sessions, sender := newTestRouter(t)
	seedActive(t, creds, sessions, 42)

	router.Dispatch(context.Background(), msg(42, "/2fa"))
	assert.Contains(t, sender.last(t), "disabled")
}

func TestDispatch_InactiveSessionRedirectsToLogin(t *testing.T) {
	t.Parallel()

	router, _, creds, sessions, sender := newTestRouter(t)
	ctx := context.Background()
	seedActive(t, creds, sessions, 42)
	require.NoError(t, sessions.Invalidate(ctx, 42))

	router.Dispatch(ctx, msg(42, "/whoami"))
	assert.Contains(t, sender.last(t), "password")

	// the command was consumed by the interceptor, not dispatched
	for _, s := range sender.sent {
		assert.NotContains(t, s, "Role:")
	}
}

func TestDispatch_UnchangedPasswordForcesLogin(t *testing.T) {
	t.Parallel()

	router, repo, creds, _, sender := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, creds.AssignRole(ctx, 42, principals.RoleAdmin))
	require.NoError(t, creds.EnsureCredentialSeed(ctx, 42))
	// a lingering timestamp must not bypass the forced change
	require.NoError(t, repo.UpdateLastAuth(ctx, 42, time.Now().Unix()))

	router.Dispatch(ctx, msg(42, "/whoami"))
	assert.Contains(t, sender.last(t), "Authentication required")
}

func TestDispatch_StartEnrollment(t *testing.T) {
	t.Parallel()

	router, _, creds, sessions, sender := newTestRouter(t)
	seedActive(t, creds, sessions, 42)

	router.Dispatch(context.Background(), msg(42, "/enable2fa"))
	assert.Contains(t, sender.last(t), "6-digit code")
}
