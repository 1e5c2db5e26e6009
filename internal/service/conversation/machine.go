package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zhouzirui/lookie/backend/internal/analysis/intent"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/service/candidate"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

const defaultDeleteTimeout = 5 * time.Second

// Narrator 为完成的穿搭生成一段人设口吻的点评。
type Narrator interface {
	Narrate(ctx context.Context, personaID string, look outfit.FinalOutfit) (string, error)
}

// Option 调整 Machine 的可选依赖。
type Option func(*Machine)

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNarrator 在完成时追加穿搭点评。
func WithNarrator(n Narrator) Option {
	return func(m *Machine) { m.narrator = n }
}

// WithDeleteTimeout 限制退出时后台删除远端会话的耗时。
func WithDeleteTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.deleteTimeout = d
		}
	}
}

// variables 是会话的全部可变数据，只在持有 gate 时读写。
type variables struct {
	sessionID    string
	state        State
	prefs        outfit.NegativePreferences
	cursor       outfit.CategoryCursor
	tpo          string
	finalOutfit  *outfit.FinalOutfit
	pendingFetch bool
	halted       bool
}

// Machine 驱动一次推荐会话。同一时刻只处理一条输入，处理期间到达的输入会被丢弃。
type Machine struct {
	gw            gateway.Gateway
	persona       string
	logger        *zap.Logger
	narrator      Narrator
	deleteTimeout time.Duration

	gate     *semaphore.Weighted
	exited   atomic.Bool
	exitOnce sync.Once
	exitDone chan struct{}
	snapshot atomic.Pointer[Snapshot]

	v     variables
	store *candidate.Store
}

// New 创建处于 GREETING 状态的会话，调用 Start 后开始对话。
func New(gw gateway.Gateway, persona string, opts ...Option) *Machine {
	m := &Machine{
		gw:            gw,
		persona:       persona,
		logger:        zap.NewNop(),
		deleteTimeout: defaultDeleteTimeout,
		gate:          semaphore.NewWeighted(1),
		exitDone:      make(chan struct{}),
		store:         candidate.NewStore(),
		v: variables{
			state: StateGreeting,
			prefs: outfit.DefaultNegativePreferences(),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.publish()
	return m
}

// Persona 返回会话绑定的人设。
func (m *Machine) Persona() string {
	return m.persona
}

// Snapshot 返回最近一次完成的状态视图，不会等待进行中的处理。
func (m *Machine) Snapshot() Snapshot {
	snap := *m.snapshot.Load()
	if m.exited.Load() {
		snap.State = StateExited
	}
	return snap
}

// Start 创建远端会话并绑定人设，然后自动进入 NEGATIVE_FIT。
// 创建失败时会话终止，后续输入返回 ErrHalted。
func (m *Machine) Start(ctx context.Context) (Turn, error) {
	release, err := m.enter()
	if err != nil {
		return m.idleTurn(), err
	}
	defer release()

	var t Turn
	if m.v.state != StateGreeting {
		return m.done(t), ErrAlreadyStarted
	}

	sessionID, err := m.gw.CreateSession(ctx)
	if err != nil {
		return m.halt(t, "create session", err)
	}
	m.v.sessionID = sessionID

	if err := m.gw.SetPersona(ctx, sessionID, m.persona); err != nil {
		return m.halt(t, "set persona", err)
	}

	m.logger.Info("conversation started",
		zap.String("session", shortID(sessionID)),
		zap.String("persona", m.persona))

	t.say(msgWelcome)
	m.v.state = StateNegativeFit
	t.say(msgAskFit)
	return m.done(t), nil
}

// Handle 处理一条自由文本输入。
func (m *Machine) Handle(ctx context.Context, input string) (Turn, error) {
	release, err := m.enter()
	if err != nil {
		return m.idleTurn(), err
	}
	defer release()

	var t Turn
	if m.v.state == StateGreeting {
		return m.done(t), ErrNotStarted
	}

	from := m.v.state
	text := strings.TrimSpace(input)
	if text == "" {
		m.settle(&t, &ValidationError{State: from, Input: input, Message: msgEmptyInput})
		return m.done(t), nil
	}

	var stepErr error
	switch m.v.state {
	case StateNegativeFit:
		m.handleFit(&t, text)
	case StateNegativePattern:
		m.handlePattern(&t, text)
	case StateNegativePrice:
		stepErr = m.handlePrice(ctx, &t, text)
	case StateTPO:
		stepErr = m.handleTPO(ctx, &t, text)
	case StateRecommendation:
		stepErr = m.handleRecommendation(ctx, &t, text)
	case StateFeedbackSubCategory, StateFeedbackColor, StateFeedbackTexture:
		stepErr = m.handleFeedbackOption(ctx, &t, text)
	case StateEmptyChoice:
		stepErr = m.handleEmptyChoice(&t, text)
	case StateComplete:
		stepErr = m.handleComplete(ctx, &t)
	}
	m.settle(&t, stepErr)

	m.logger.Debug("conversation input handled",
		zap.String("session", shortID(m.v.sessionID)),
		zap.String("from", string(from)),
		zap.String("to", string(m.v.state)))
	return m.done(t), nil
}

// Select 选择一个候选商品（与文本输入分开的带外操作）。
func (m *Machine) Select(ctx context.Context, productID string) (Turn, error) {
	release, err := m.enter()
	if err != nil {
		return m.idleTurn(), err
	}
	defer release()

	var t Turn
	if m.v.state == StateGreeting {
		return m.done(t), ErrNotStarted
	}

	m.settle(&t, m.selectItem(ctx, &t, strings.TrimSpace(productID)))
	return m.done(t), nil
}

// Exit 结束会话并在后台尽力删除远端会话，调用方无需等待。
// 返回的 channel 在后台删除结束后关闭。
func (m *Machine) Exit() <-chan struct{} {
	m.exitOnce.Do(func() {
		m.exited.Store(true)
		go m.teardown()
	})
	return m.exitDone
}

func (m *Machine) teardown() {
	defer close(m.exitDone)

	ctx, cancel := context.WithTimeout(context.Background(), m.deleteTimeout)
	defer cancel()

	if err := m.gate.Acquire(ctx, 1); err != nil {
		m.logger.Warn("exit: input still in flight, skip remote delete", zap.Error(err))
		return
	}
	sessionID := m.v.sessionID
	m.v.state = StateExited
	m.publish()
	m.gate.Release(1)

	if sessionID == "" {
		return
	}
	if err := m.gw.DeleteSession(ctx, sessionID); err != nil {
		m.logger.Warn("best-effort session delete failed",
			zap.String("session", shortID(sessionID)),
			zap.Error(err))
		return
	}
	m.logger.Info("conversation exited", zap.String("session", shortID(sessionID)))
}

func (m *Machine) handleFit(t *Turn, text string) {
	fit := intent.ClassifyFit(text)
	m.v.prefs.Fit = fit
	t.say(fitAck(fit))
	m.v.state = StateNegativePattern
	t.say(msgAskPattern)
}

func (m *Machine) handlePattern(t *Turn, text string) {
	pattern := intent.ClassifyPattern(text)
	m.v.prefs.Pattern = pattern
	t.say(patternAck(pattern))
	m.v.state = StateNegativePrice
	t.say(msgAskPrice)
}

func (m *Machine) handlePrice(ctx context.Context, t *Turn, text string) error {
	prefs := m.v.prefs
	prefs.MaxPrice = intent.ClassifyPrice(text)

	if err := m.gw.SubmitNegativePreferences(ctx, m.v.sessionID, prefs); err != nil {
		return failed(msgPreferencesFailed, err)
	}

	m.v.prefs = prefs
	t.say(priceAck(prefs.MaxPrice))
	t.say(msgPreferencesSaved)
	m.v.state = StateTPO
	t.say(msgAskTPO)
	return nil
}

func (m *Machine) handleTPO(ctx context.Context, t *Turn, text string) error {
	result, err := m.gw.SubmitTPO(ctx, m.v.sessionID, text, m.persona)
	if err != nil {
		return failed(msgTPOFailed, err)
	}

	refined := strings.TrimSpace(result.Refined)
	if refined == "" {
		refined = text
	}
	m.v.tpo = refined
	t.say(tpoAccepted(refined))

	if err := m.fetchCandidates(ctx, t); err != nil {
		return failed(msgRecommendFailed, err)
	}
	return nil
}

func (m *Machine) handleRecommendation(ctx context.Context, t *Turn, text string) error {
	if m.v.pendingFetch {
		return m.retryFetch(ctx, t)
	}

	ft, ok := intent.ClassifyFeedbackType(text)
	if !ok {
		t.say(msgFeedbackMenu)
		return nil
	}

	category := m.v.cursor.Category
	options := intent.Options(ft, category)
	if len(options) == 0 {
		t.fail(fmt.Sprintf("%s은(는) %s 변경을 지원하지 않아요.", category, ft.Label()))
		t.say(msgFeedbackMenu)
		return nil
	}

	m.v.state = feedbackState(ft)
	t.say(feedbackOptionsPrompt(category, ft, options))
	return nil
}

func (m *Machine) handleFeedbackOption(ctx context.Context, t *Turn, text string) error {
	ft, _ := m.v.state.FeedbackType()
	value, err := intent.ClassifyOption(ft, m.v.cursor.Category, text)
	if err != nil {
		return &ValidationError{State: m.v.state, Input: text, Message: msgNoOptionMatch}
	}

	feedback := outfit.Feedback{Type: ft, Values: []string{value}}
	if err := m.gw.SubmitFeedback(ctx, m.v.sessionID, feedback); err != nil {
		return failed(msgFeedbackFailed, err)
	}
	t.say(feedbackApplied(ft, value))

	if err := m.fetchCandidates(ctx, t); err != nil {
		return failed(msgRecommendFailed, err)
	}
	return nil
}

func (m *Machine) handleEmptyChoice(t *Turn, text string) error {
	switch intent.ClassifyEmptyChoice(text) {
	case intent.ChoiceRestore:
		if !m.store.HasPrevious() {
			t.say(msgNoPrevious)
			return nil
		}
		restored := outfit.TagAll(m.store.Previous(), outfit.ProvenancePrevious)
		m.store.SetCurrent(restored)
		t.say(msgRestoringPrevious)
		m.present(t, restored)
		return nil
	case intent.ChoiceRelax:
		m.v.prefs = outfit.DefaultNegativePreferences()
		m.v.state = StateNegativeFit
		t.say(msgRelaxing)
		t.say(msgAskFit)
		return nil
	default:
		return &ValidationError{State: m.v.state, Input: text, Message: msgEmptyChoiceInvalid}
	}
}

func (m *Machine) handleComplete(ctx context.Context, t *Turn) error {
	if m.v.finalOutfit != nil {
		t.say(msgAlreadyComplete)
		return nil
	}
	return m.completeOutfit(ctx, t)
}

func (m *Machine) selectItem(ctx context.Context, t *Turn, productID string) error {
	if !m.v.state.AcceptsSelection() || m.v.pendingFetch {
		t.fail(msgSelectionNotAllowed)
		return nil
	}
	if _, ok := m.store.Find(productID); productID == "" || !ok {
		t.fail(msgUnknownProduct)
		return nil
	}

	selection, err := m.gw.SelectItem(ctx, m.v.sessionID, productID)
	if err != nil {
		return failed(msgSelectFailed, err)
	}

	category := selection.Category
	if category == "" {
		category = m.v.cursor.Category
	}
	t.say(selectedMessage(category))

	m.store.SetCurrent(nil)
	m.store.Reset()

	if selection.IsComplete || selection.NextCategory == "" {
		m.v.state = StateComplete
		return m.completeOutfit(ctx, t)
	}

	m.v.cursor = outfit.CategoryCursor{
		Category: selection.NextCategory,
		Index:    m.v.cursor.Index + 1,
		Total:    m.v.cursor.Total,
	}
	m.v.state = StateRecommendation
	t.say(nextCategoryMessage(selection.NextCategory))

	if err := m.fetchCandidates(ctx, t); err != nil {
		if errors.Is(err, ErrEmptyResult) {
			return err
		}
		m.v.pendingFetch = true
		return failed(msgRecommendFailed+"\n"+msgRetryHint, err)
	}
	return nil
}

func (m *Machine) retryFetch(ctx context.Context, t *Turn) error {
	if err := m.fetchCandidates(ctx, t); err != nil {
		if errors.Is(err, ErrEmptyResult) {
			m.v.pendingFetch = false
			return err
		}
		return failed(msgRecommendFailed+"\n"+msgRetryHint, err)
	}
	m.v.pendingFetch = false
	return nil
}

// fetchCandidates 拉取一轮候选并与上一代合并。远端标记为恢复时直接展示恢复的集合。
func (m *Machine) fetchCandidates(ctx context.Context, t *Turn) error {
	rec, err := m.gw.FetchNextCandidates(ctx, m.v.sessionID)
	if err != nil {
		return err
	}

	if rec.Category != "" {
		if rec.Category != m.v.cursor.Category {
			m.store.Reset()
		}
		m.v.cursor = rec.Cursor()
	}

	if len(rec.Candidates) == 0 {
		return ErrEmptyResult
	}

	if rec.RestoredFromPrevious {
		restored := outfit.TagAll(rec.Candidates, outfit.ProvenancePrevious)
		m.store.SetCurrent(restored)
		m.store.Checkpoint(restored)
		t.warn(msgRestoredWarning)
		m.present(t, restored)
		return nil
	}

	merged := m.store.MergeWithPrevious(rec.Candidates)
	m.store.SetCurrent(merged)
	m.store.Checkpoint(merged)
	m.present(t, merged)
	return nil
}

func (m *Machine) completeOutfit(ctx context.Context, t *Turn) error {
	t.say(msgCompleting)

	look, err := m.gw.FetchFinalOutfit(ctx, m.v.sessionID)
	if err != nil {
		return failed(msgFinalOutfitFailed+"\n"+msgRetryHint, err)
	}
	m.v.finalOutfit = &look
	t.showOutfit(look)
	t.say(completeSummary(look))

	if m.narrator == nil {
		return nil
	}
	comment, err := m.narrator.Narrate(ctx, m.persona, look)
	if err != nil {
		m.logger.Warn("outfit narration failed", zap.String("persona", m.persona), zap.Error(err))
		return nil
	}
	if comment = strings.TrimSpace(comment); comment != "" {
		t.say(comment)
	}
	return nil
}

func (m *Machine) present(t *Turn, items []outfit.Candidate) {
	m.v.state = StateRecommendation
	t.say(recommendationHeader(m.v.cursor.Category))
	t.showCandidates(m.v.cursor.Category, items)
}

// settle 在状态转换边界把错误转换为面向用户的消息，状态保持不变（空结果除外）。
func (m *Machine) settle(t *Turn, err error) {
	if err == nil {
		return
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		t.fail(validation.Message)
		m.reprompt(t)
		return
	}

	if errors.Is(err, ErrEmptyResult) {
		m.v.state = StateEmptyChoice
		t.say(msgEmptyResult)
		return
	}

	m.logger.Warn("conversation step failed",
		zap.String("session", shortID(m.v.sessionID)),
		zap.String("state", string(m.v.state)),
		zap.Error(err))

	switch remote, ok := gateway.AsRemote(err); {
	case ok:
		t.fail(remote.Detail)
	case gateway.IsConnection(err):
		t.fail(msgConnectionLost)
	}

	var step *stepError
	if errors.As(err, &step) && step.hint != "" {
		t.say(step.hint)
	}
}

func (m *Machine) reprompt(t *Turn) {
	switch m.v.state {
	case StateNegativeFit:
		t.say(msgAskFit)
	case StateNegativePattern:
		t.say(msgAskPattern)
	case StateNegativePrice:
		t.say(msgAskPrice)
	case StateTPO:
		t.say(msgAskTPO)
	case StateRecommendation:
		t.say(msgFeedbackMenu)
	case StateFeedbackSubCategory, StateFeedbackColor, StateFeedbackTexture:
		ft, _ := m.v.state.FeedbackType()
		category := m.v.cursor.Category
		t.say(feedbackOptionsPrompt(category, ft, intent.Options(ft, category)))
	}
}

func (m *Machine) halt(t Turn, op string, err error) (Turn, error) {
	m.v.halted = true
	m.logger.Error("conversation bootstrap failed", zap.String("op", op), zap.Error(err))
	t.fail(msgBootstrapFailed)
	if remote, ok := gateway.AsRemote(err); ok {
		t.fail(remote.Detail)
	}
	return m.done(t), fmt.Errorf("%s: %w", op, err)
}

// enter 获取处理令牌，拿不到时直接丢弃本次输入。
func (m *Machine) enter() (func(), error) {
	if m.exited.Load() {
		return nil, ErrExited
	}
	if !m.gate.TryAcquire(1) {
		return nil, ErrBusy
	}
	if m.exited.Load() {
		m.gate.Release(1)
		return nil, ErrExited
	}
	if m.v.halted {
		m.gate.Release(1)
		return nil, ErrHalted
	}
	return func() {
		m.publish()
		m.gate.Release(1)
	}, nil
}

func (m *Machine) done(t Turn) Turn {
	t.State = m.v.state
	return t
}

func (m *Machine) idleTurn() Turn {
	return Turn{State: m.Snapshot().State}
}

func (m *Machine) publish() {
	m.snapshot.Store(&Snapshot{
		RemoteSessionID: m.v.sessionID,
		Persona:         m.persona,
		State:           m.v.state,
		Preferences:     m.v.prefs,
		Cursor:          m.v.cursor,
		TPO:             m.v.tpo,
		Candidates:      m.store.Current(),
		HasPrevious:     m.store.HasPrevious(),
		FinalOutfit:     m.v.finalOutfit,
		Halted:          m.v.halted,
	})
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
