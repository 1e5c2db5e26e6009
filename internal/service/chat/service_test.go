package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/lookie/backend/internal/model/chat"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
	"github.com/zhouzirui/lookie/backend/internal/service/conversation"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway/gatewaytest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(stub *gatewaytest.Stub, opts ...Option) *Service {
	return NewService(stub, persona.NewMemoryStore(persona.Seed()), opts...)
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session teardown did not finish")
	}
}

func TestServiceGetSession(t *testing.T) {
	svc := newTestService(gatewaytest.NewStub())
	ctx := context.Background()

	session, turn, err := svc.CreateSession(ctx, "ob")
	require.NoError(t, err)
	assert.Equal(t, conversation.StateNegativeFit, turn.State)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "ob", got.PersonaID)

	done, err := svc.Close(session.ID)
	require.NoError(t, err)
	waitClosed(t, done)
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newTestService(gatewaytest.NewStub())

	_, err := svc.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Send(context.Background(), "missing", "안녕")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Close("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreateSessionValidatesPersona(t *testing.T) {
	svc := newTestService(gatewaytest.NewStub())

	_, _, err := svc.CreateSession(context.Background(), "")
	assert.ErrorIs(t, err, ErrPersonaRequired)

	_, _, err = svc.CreateSession(context.Background(), "iron-man")
	assert.ErrorIs(t, err, ErrPersonaNotFound)
	assert.Zero(t, svc.Len())
}

func TestCreateSessionBootstrapFailure(t *testing.T) {
	stub := gatewaytest.NewStub()
	stub.CreateErr = &gateway.ConnectionError{Op: "create session", Err: errors.New("connection refused")}
	svc := newTestService(stub)

	_, turn, err := svc.CreateSession(context.Background(), "pme")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBootstrapFailed)
	assert.True(t, gateway.IsConnection(err))
	assert.True(t, turn.HasKind(conversation.ReplyError))
	assert.Zero(t, svc.Len())
}

func TestSendRecordsTranscript(t *testing.T) {
	svc := newTestService(gatewaytest.NewStub())
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, "pme")
	require.NoError(t, err)

	turn, err := svc.Send(ctx, session.ID, "슬림 핏은 별로")
	require.NoError(t, err)
	assert.Equal(t, conversation.StateNegativePattern, turn.State)

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 5)

	assert.Equal(t, chat.SenderBot, transcript[0].Sender)
	assert.Equal(t, chat.SenderUser, transcript[2].Sender)
	assert.Equal(t, "슬림 핏은 별로", transcript[2].Content)
	assert.Equal(t, string(conversation.StateNegativePattern), transcript[4].State)
	for _, msg := range transcript {
		assert.Equal(t, session.ID, msg.SessionID)
		assert.NotEmpty(t, msg.ID)
	}

	done, err := svc.Close(session.ID)
	require.NoError(t, err)
	waitClosed(t, done)
}

func TestFullSessionAndLookbook(t *testing.T) {
	stub := gatewaytest.NewStub()
	svc := newTestService(stub, WithLookbookPublisher(stub))
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, "promi")
	require.NoError(t, err)

	for _, in := range []string{"없음", "없음", "30만원", "친구 생일파티"} {
		_, err := svc.Send(ctx, session.ID, in)
		require.NoError(t, err)
	}

	_, err = svc.Lookbook(ctx, session.ID)
	assert.ErrorIs(t, err, ErrOutfitNotReady)

	var turn conversation.Turn
	for i := range outfit.CategoryOrder {
		turn, err = svc.Select(ctx, session.ID, gatewaytest.ProductID(i, 0, 0))
		require.NoError(t, err)
	}
	assert.Equal(t, conversation.StateComplete, turn.State)

	snap, err := svc.Snapshot(session.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.FinalOutfit)
	assert.Equal(t, len(outfit.CategoryOrder), snap.FinalOutfit.TotalCount)

	look, err := svc.Lookbook(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "promi-5", look.OutfitID)
	assert.NotEmpty(t, look.LookbookURL)

	remoteID := snap.RemoteSessionID
	done, err := svc.Close(session.ID)
	require.NoError(t, err)
	waitClosed(t, done)
	assert.Contains(t, stub.Deleted(), remoteID)
	assert.Zero(t, stub.Sessions())
}

func TestLookbookDisabled(t *testing.T) {
	svc := newTestService(gatewaytest.NewStub())
	_, err := svc.Lookbook(context.Background(), "any")
	assert.ErrorIs(t, err, ErrLookbookDisabled)
}

func TestSweepIdleClosesStaleSessions(t *testing.T) {
	stub := gatewaytest.NewStub()
	svc := newTestService(stub)
	ctx := context.Background()

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale, _, err := svc.CreateSession(ctx, "pme")
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	fresh, _, err := svc.CreateSession(ctx, "seoksa")
	require.NoError(t, err)

	now = now.Add(40 * time.Minute)
	assert.Equal(t, 1, svc.SweepIdle(time.Hour))
	assert.Equal(t, 0, svc.SweepIdle(0))

	_, err = svc.GetSession(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.GetSession(ctx, fresh.ID)
	assert.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(shutdownCtx))
	assert.Zero(t, svc.Len())

	assert.Eventually(t, func() bool { return stub.Sessions() == 0 }, time.Second, 10*time.Millisecond)
}
