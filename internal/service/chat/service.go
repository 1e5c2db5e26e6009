package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/model/chat"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
	"github.com/zhouzirui/lookie/backend/internal/service/conversation"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

var (
	ErrPersonaRequired  = errors.New("persona id is required")
	ErrPersonaNotFound  = errors.New("persona not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrBootstrapFailed  = errors.New("conversation bootstrap failed")
	ErrOutfitNotReady   = errors.New("final outfit is not ready")
	ErrLookbookDisabled = errors.New("lookbook publishing is not configured")
)

// Option 调整 Service 的可选依赖。
type Option func(*Service)

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNarrator 为每个会话注入穿搭点评生成器。
func WithNarrator(n conversation.Narrator) Option {
	return func(s *Service) { s.narrator = n }
}

// WithLookbookPublisher 启用 lookbook 二维码生成。
func WithLookbookPublisher(p gateway.LookbookPublisher) Option {
	return func(s *Service) { s.lookbook = p }
}

// WithDeleteTimeout 限制退出时删除远端会话的耗时。
func WithDeleteTimeout(d time.Duration) Option {
	return func(s *Service) { s.deleteTimeout = d }
}

type entry struct {
	session    chat.Session
	machine    *conversation.Machine
	lastActive atomic.Int64

	mu         sync.Mutex
	transcript []chat.Message
}

func (e *entry) touch(now time.Time) {
	e.lastActive.Store(now.UnixNano())
}

func (e *entry) append(messages ...chat.Message) {
	e.mu.Lock()
	e.transcript = append(e.transcript, messages...)
	e.mu.Unlock()
}

// Service 管理本地会话与各自的推荐状态机。
type Service struct {
	gw            gateway.Gateway
	personas      persona.Store
	narrator      conversation.Narrator
	lookbook      gateway.LookbookPublisher
	deleteTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService bootstraps the in-memory chat service.
func NewService(gw gateway.Gateway, personas persona.Store, opts ...Option) *Service {
	s := &Service{
		gw:       gw,
		personas: personas,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession provisions an anonymous session bound to a persona and runs the greeting.
// 初始化失败时不会登记会话，返回的 Turn 携带面向用户的错误提示。
func (s *Service) CreateSession(ctx context.Context, personaID string) (chat.Session, conversation.Turn, error) {
	if personaID == "" {
		return chat.Session{}, conversation.Turn{}, ErrPersonaRequired
	}
	if _, ok := s.personas.FindByID(personaID); !ok {
		return chat.Session{}, conversation.Turn{}, ErrPersonaNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: s.now(),
	}

	machineOpts := []conversation.Option{
		conversation.WithLogger(s.logger.With(zap.String("local_session", session.ID))),
		conversation.WithDeleteTimeout(s.deleteTimeout),
	}
	if s.narrator != nil {
		machineOpts = append(machineOpts, conversation.WithNarrator(s.narrator))
	}
	machine := conversation.New(s.gw, personaID, machineOpts...)

	turn, err := machine.Start(ctx)
	if err != nil {
		machine.Exit()
		s.logger.Warn("session bootstrap failed", zap.String("persona", personaID), zap.Error(err))
		return chat.Session{}, turn, fmt.Errorf("%w: %w", ErrBootstrapFailed, err)
	}

	e := &entry{session: session, machine: machine, transcript: make([]chat.Message, 0, 32)}
	e.touch(s.now())
	e.append(s.botMessages(session.ID, turn)...)

	s.mu.Lock()
	s.sessions[session.ID] = e
	s.mu.Unlock()

	s.logger.Info("session created",
		zap.String("session", session.ID),
		zap.String("persona", personaID))
	return session, turn, nil
}

// Send 把一条用户输入交给会话状态机。
func (s *Service) Send(ctx context.Context, sessionID, content string) (conversation.Turn, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return conversation.Turn{}, err
	}

	turn, err := e.machine.Handle(ctx, content)
	if err != nil {
		return turn, err
	}
	e.append(s.userMessage(sessionID, content))
	e.append(s.botMessages(sessionID, turn)...)
	return turn, nil
}

// Select 选择当前展示的候选商品。
func (s *Service) Select(ctx context.Context, sessionID, productID string) (conversation.Turn, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return conversation.Turn{}, err
	}

	turn, err := e.machine.Select(ctx, productID)
	if err != nil {
		return turn, err
	}
	e.append(chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Kind:      "select",
		Content:   productID,
		CreatedAt: s.now(),
	})
	e.append(s.botMessages(sessionID, turn)...)
	return turn, nil
}

// Close 注销会话并在后台删除远端会话，返回的 channel 在清理结束后关闭。
func (s *Service) Close(sessionID string) (<-chan struct{}, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	s.logger.Info("session closed", zap.String("session", sessionID))
	return e.machine.Exit(), nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return e.session, nil
}

// Snapshot 返回会话状态机的只读视图。
func (s *Service) Snapshot(sessionID string) (conversation.Snapshot, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	return e.machine.Snapshot(), nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	copied := make([]chat.Message, len(e.transcript))
	copy(copied, e.transcript)
	return copied, nil
}

// Lookbook 为已完成的穿搭生成 lookbook 链接和二维码。
func (s *Service) Lookbook(ctx context.Context, sessionID string) (outfit.Lookbook, error) {
	if s.lookbook == nil {
		return outfit.Lookbook{}, ErrLookbookDisabled
	}
	e, err := s.lookup(sessionID)
	if err != nil {
		return outfit.Lookbook{}, err
	}

	snap := e.machine.Snapshot()
	if snap.FinalOutfit == nil {
		return outfit.Lookbook{}, ErrOutfitNotReady
	}
	return s.lookbook.GenerateLookbook(ctx, *snap.FinalOutfit, e.session.PersonaID)
}

// SweepIdle 关闭超过 maxIdle 未活动的会话，返回关闭数量。
func (s *Service) SweepIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle).UnixNano()

	var stale []*entry
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastActive.Load() < cutoff {
			stale = append(stale, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		e.machine.Exit()
		s.logger.Info("idle session expired", zap.String("session", e.session.ID))
	}
	return len(stale)
}

// Shutdown 关闭全部会话并等待远端清理，ctx 到期时提前返回。
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		entries = append(entries, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range entries {
		select {
		case <-e.machine.Exit():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Len 返回活跃会话数量。
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(s.now())
	return e, nil
}

func (s *Service) userMessage(sessionID, content string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Kind:      "text",
		Content:   content,
		CreatedAt: s.now(),
	}
}

func (s *Service) botMessages(sessionID string, turn conversation.Turn) []chat.Message {
	messages := make([]chat.Message, 0, len(turn.Replies))
	for _, r := range turn.Replies {
		content := r.Text
		switch r.Kind {
		case conversation.ReplyCandidates:
			content = fmt.Sprintf("%s 후보 %d개", r.Category, len(r.Candidates))
		case conversation.ReplyOutfit:
			if r.Outfit != nil {
				content = fmt.Sprintf("최종 코디 %d개 아이템", r.Outfit.TotalCount)
			}
		}
		messages = append(messages, chat.Message{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Sender:    chat.SenderBot,
			Kind:      string(r.Kind),
			Content:   content,
			State:     string(turn.State),
			CreatedAt: s.now(),
		})
	}
	return messages
}
