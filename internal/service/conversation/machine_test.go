package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type tagged struct {
	ID         string
	Provenance outfit.Provenance
}

func provenanceOf(items []outfit.Candidate) []tagged {
	out := make([]tagged, 0, len(items))
	for _, c := range items {
		out = append(out, tagged{ID: c.ProductID, Provenance: c.Provenance})
	}
	return out
}

func drive(t *testing.T, m *Machine, inputs ...string) Turn {
	t.Helper()
	var last Turn
	for _, in := range inputs {
		turn, err := m.Handle(context.Background(), in)
		require.NoError(t, err, "input %q", in)
		last = turn
	}
	return last
}

func started(t *testing.T, fg *fakeGateway, opts ...Option) *Machine {
	t.Helper()
	m := New(fg, "pme", opts...)
	_, err := m.Start(context.Background())
	require.NoError(t, err)
	return m
}

// atRecommendation 走完偏好与 TPO，停在第一轮推荐。
func atRecommendation(t *testing.T, fg *fakeGateway, opts ...Option) *Machine {
	t.Helper()
	m := started(t, fg, opts...)
	turn := drive(t, m, "없음", "없음", "30만원", "출근")
	require.Equal(t, StateRecommendation, turn.State)
	return m
}

func lastCandidates(turn Turn) []outfit.Candidate {
	for i := len(turn.Replies) - 1; i >= 0; i-- {
		if turn.Replies[i].Kind == ReplyCandidates {
			return turn.Replies[i].Candidates
		}
	}
	return nil
}

func TestStartMovesToNegativeFit(t *testing.T) {
	fg := newFakeGateway()
	m := New(fg, "nowon")

	turn, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateNegativeFit, turn.State)
	assert.Equal(t, []string{msgWelcome, msgAskFit}, turn.Texts())
	assert.Equal(t, []string{"create", "persona"}, fg.Calls())

	snap := m.Snapshot()
	assert.Equal(t, "remote-session-0001", snap.RemoteSessionID)
	assert.Equal(t, "nowon", snap.Persona)
	assert.Equal(t, outfit.DefaultNegativePreferences(), snap.Preferences)

	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestHandleBeforeStart(t *testing.T) {
	m := New(newFakeGateway(), "pme")

	turn, err := m.Handle(context.Background(), "안녕")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, StateGreeting, turn.State)

	_, err = m.Select(context.Background(), "A")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestStartFailureHalts(t *testing.T) {
	fg := newFakeGateway()
	fg.createErr = &gateway.ConnectionError{Op: "create session", Err: errors.New("connection refused")}
	m := New(fg, "pme")

	turn, err := m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, gateway.IsConnection(err))
	assert.Equal(t, StateGreeting, turn.State)
	assert.Contains(t, turn.Texts(), msgBootstrapFailed)
	assert.True(t, m.Snapshot().Halted)

	_, err = m.Handle(context.Background(), "없음")
	assert.ErrorIs(t, err, ErrHalted)
	assert.Equal(t, []string{"create"}, fg.Calls())
}

func TestPersonaFailureHaltsWithRemoteDetail(t *testing.T) {
	fg := newFakeGateway()
	fg.personaErr = &gateway.RemoteError{Op: "set persona", Status: 400, Detail: "Invalid persona"}
	m := New(fg, "unknown")

	turn, err := m.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{msgBootstrapFailed, "Invalid persona"}, turn.Texts())

	_, err = m.Select(context.Background(), "A")
	assert.ErrorIs(t, err, ErrHalted)

	<-m.Exit()
	assert.Equal(t, "remote-session-0001", fg.deletedID)
}

func TestHappyPathToComplete(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "A", "B")
	fg.queue(outfit.CategoryOuter, 1, "C")
	fg.selections = []gateway.Selection{{Category: outfit.CategoryTop, NextCategory: outfit.CategoryOuter}}
	fg.final = outfit.FinalOutfit{
		TPO:        "주말 데이트",
		TotalCount: 2,
		Items: []outfit.SelectedItem{
			{ProductID: "A", Category: outfit.CategoryTop},
			{ProductID: "C", Category: outfit.CategoryOuter},
		},
	}
	m := started(t, fg, WithNarrator(fakeNarrator{text: "데이트룩 완성! 💕"}))

	turn := drive(t, m, "오버핏은 싫어요")
	assert.Equal(t, StateNegativePattern, turn.State)
	assert.Equal(t, []string{fitAck(outfit.FitOversized), msgAskPattern}, turn.Texts())

	turn = drive(t, m, "체크 무늬")
	assert.Equal(t, StateNegativePrice, turn.State)

	turn = drive(t, m, "20만원 정도")
	assert.Equal(t, StateTPO, turn.State)
	assert.Equal(t, outfit.NegativePreferences{
		Fit:      outfit.FitOversized,
		Pattern:  outfit.PatternCheck,
		MaxPrice: outfit.Price200K,
	}, fg.lastPrefs)
	assert.Contains(t, turn.Texts(), "네, 20만원 이하의 상품만 추천드릴게요! ✅")

	turn = drive(t, m, "주말에 데이트")
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Contains(t, turn.Texts(), tpoAccepted("주말 데이트"))
	assert.Empty(t, cmp.Diff([]tagged{
		{"A", outfit.ProvenanceNew},
		{"B", outfit.ProvenanceNew},
	}, provenanceOf(lastCandidates(turn))))
	assert.Equal(t, outfit.CategoryCursor{Category: outfit.CategoryTop, Index: 0, Total: 5}, m.Snapshot().Cursor)

	turn, err := m.Select(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Contains(t, turn.Texts(), "좋아요! 상의를 선택했습니다! ✨")
	assert.Contains(t, turn.Texts(), nextCategoryMessage(outfit.CategoryOuter))
	assert.Equal(t, outfit.CategoryOuter, m.Snapshot().Cursor.Category)
	assert.Equal(t, "A", fg.lastSelected)

	turn, err = m.Select(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, StateComplete, turn.State)
	require.True(t, turn.HasKind(ReplyOutfit))
	assert.Contains(t, turn.Texts(), completeSummary(fg.final))
	assert.Equal(t, "데이트룩 완성! 💕", turn.Texts()[len(turn.Texts())-1])

	snap := m.Snapshot()
	require.NotNil(t, snap.FinalOutfit)
	assert.Equal(t, 2, snap.FinalOutfit.TotalCount)
	assert.Empty(t, snap.Candidates)

	turn = drive(t, m, "하나 더")
	assert.Equal(t, StateComplete, turn.State)
	assert.Equal(t, []string{msgAlreadyComplete}, turn.Texts())
	assert.Equal(t, 1, fg.count("final"))

	assert.Equal(t, []string{
		"create", "persona", "negatives", "tpo", "fetch",
		"select", "fetch", "select", "final",
	}, fg.Calls())
}

func TestFeedbackMergesWithPreviousGeneration(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "X", "Y")
	fg.queue(outfit.CategoryTop, 0, "A", "B", "X")
	m := atRecommendation(t, fg)

	turn := drive(t, m, "색상 바꿔줘")
	assert.Equal(t, StateFeedbackColor, turn.State)

	turn = drive(t, m, "검정색으로")
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Equal(t, outfit.Feedback{Type: outfit.FeedbackColor, Values: []string{"블랙"}}, fg.lastFeedback)

	want := []tagged{
		{"A", outfit.ProvenanceNew},
		{"B", outfit.ProvenanceNew},
		{"X", outfit.ProvenanceNew},
		{"Y", outfit.ProvenancePrevious},
	}
	assert.Empty(t, cmp.Diff(want, provenanceOf(lastCandidates(turn))))
	assert.Empty(t, cmp.Diff(want, provenanceOf(m.Snapshot().Candidates)))

	// 旧一代的商品仍然可以被选择。
	fg.selections = []gateway.Selection{{Category: outfit.CategoryTop, NextCategory: outfit.CategoryOuter}}
	fg.queue(outfit.CategoryOuter, 1, "C")
	turn, err := m.Select(context.Background(), "Y")
	require.NoError(t, err)
	assert.Equal(t, "Y", fg.lastSelected)
	assert.Equal(t, StateRecommendation, turn.State)
}

func TestCategoryAdvanceResetsPreviousGeneration(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "X", "Y")
	fg.queue(outfit.CategoryOuter, 1, "C")
	fg.selections = []gateway.Selection{{Category: outfit.CategoryTop, NextCategory: outfit.CategoryOuter}}
	m := atRecommendation(t, fg)

	turn, err := m.Select(context.Background(), "X")
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff([]tagged{{"C", outfit.ProvenanceNew}}, provenanceOf(lastCandidates(turn))))
	assert.Equal(t, 1, m.Snapshot().Cursor.Index)
}

func TestInvalidFeedbackOptionReprompts(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "X")
	m := atRecommendation(t, fg)
	drive(t, m, "색상")

	turn := drive(t, m, "형광 연두")
	assert.Equal(t, StateFeedbackColor, turn.State)
	require.True(t, turn.HasKind(ReplyError))
	assert.Equal(t, msgNoOptionMatch, turn.Replies[0].Text)
	assert.Zero(t, fg.count("feedback"))
}

func TestUnrecognizedFeedbackShowsMenu(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "X")
	m := atRecommendation(t, fg)

	turn := drive(t, m, "음 잘 모르겠어")
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Equal(t, []string{msgFeedbackMenu}, turn.Texts())
}

func TestEmptyResultThenRestorePrevious(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "X", "Y")
	m := atRecommendation(t, fg)

	drive(t, m, "소재")
	turn := drive(t, m, "면")
	assert.Equal(t, StateEmptyChoice, turn.State)
	assert.Contains(t, turn.Texts(), msgEmptyResult)

	turn = drive(t, m, "1")
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Contains(t, turn.Texts(), msgRestoringPrevious)
	assert.Empty(t, cmp.Diff([]tagged{
		{"X", outfit.ProvenancePrevious},
		{"Y", outfit.ProvenancePrevious},
	}, provenanceOf(lastCandidates(turn))))
}

func TestEmptyChoiceWithoutPreviousThenRelax(t *testing.T) {
	fg := newFakeGateway()
	m := started(t, fg)

	turn := drive(t, m, "슬림", "로고", "10만원", "면접")
	assert.Equal(t, StateEmptyChoice, turn.State)

	turn = drive(t, m, "이전 목록")
	assert.Equal(t, StateEmptyChoice, turn.State)
	assert.Equal(t, []string{msgNoPrevious}, turn.Texts())

	turn = drive(t, m, "뭐라고?")
	assert.Equal(t, StateEmptyChoice, turn.State)
	assert.True(t, turn.HasKind(ReplyError))

	turn = drive(t, m, "2번")
	assert.Equal(t, StateNegativeFit, turn.State)
	assert.Equal(t, []string{msgRelaxing, msgAskFit}, turn.Texts())
	assert.Equal(t, outfit.DefaultNegativePreferences(), m.Snapshot().Preferences)
}

func TestRestoredFromPreviousIsShownWithWarning(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "X", "Y")
	fg.queueRestored(outfit.CategoryTop, 0, "X", "Y")
	m := atRecommendation(t, fg)

	drive(t, m, "세부 카테고리")
	turn := drive(t, m, "니트")
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Equal(t, outfit.Feedback{Type: outfit.FeedbackSubCategory, Values: []string{"니트/스웨터"}}, fg.lastFeedback)

	require.True(t, turn.HasKind(ReplyWarning))
	assert.Empty(t, cmp.Diff([]tagged{
		{"X", outfit.ProvenancePrevious},
		{"Y", outfit.ProvenancePrevious},
	}, provenanceOf(lastCandidates(turn))))
	assert.True(t, m.Snapshot().HasPrevious)
}

func TestRemoteErrorKeepsStateAndShowsDetail(t *testing.T) {
	fg := newFakeGateway()
	fg.tpoErr = &gateway.RemoteError{Op: "submit tpo", Status: 400, Detail: "TPO 입력이 너무 짧습니다."}
	m := started(t, fg)

	turn := drive(t, m, "없음", "없음", "50만원", "?")
	assert.Equal(t, StateTPO, turn.State)
	assert.Equal(t, []string{"TPO 입력이 너무 짧습니다.", msgTPOFailed}, turn.Texts())
	assert.Zero(t, fg.count("fetch"))

	fg.tpoErr = nil
	fg.queue(outfit.CategoryTop, 0, "A")
	turn = drive(t, m, "친구 생일파티")
	assert.Equal(t, StateRecommendation, turn.State)
}

func TestConnectionErrorKeepsPreferencesUncommitted(t *testing.T) {
	fg := newFakeGateway()
	fg.negativesErr = &gateway.ConnectionError{Op: "submit negatives", Err: errors.New("i/o timeout")}
	m := started(t, fg)

	turn := drive(t, m, "없음", "없음", "10만원")
	assert.Equal(t, StateNegativePrice, turn.State)
	assert.Equal(t, []string{msgConnectionLost, msgPreferencesFailed}, turn.Texts())
	assert.Equal(t, outfit.DefaultPriceTier, m.Snapshot().Preferences.MaxPrice)
}

func TestEmptyInputReprompts(t *testing.T) {
	m := started(t, newFakeGateway())

	turn := drive(t, m, "   ")
	assert.Equal(t, StateNegativeFit, turn.State)
	assert.Equal(t, []string{msgEmptyInput, msgAskFit}, turn.Texts())
}

func TestPriceFallsBackToDefaultTier(t *testing.T) {
	fg := newFakeGateway()
	m := started(t, fg)

	drive(t, m, "없음", "없음", "상관없어요")
	assert.Equal(t, outfit.DefaultPriceTier, fg.lastPrefs.MaxPrice)
	assert.Equal(t, outfit.DefaultPriceTier, m.Snapshot().Preferences.MaxPrice)
}

func TestSelectValidation(t *testing.T) {
	fg := newFakeGateway()
	m := started(t, fg)

	turn, err := m.Select(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{msgSelectionNotAllowed}, turn.Texts())

	fg.queue(outfit.CategoryTop, 0, "A")
	drive(t, m, "없음", "없음", "30만원", "출근")

	turn, err = m.Select(context.Background(), "ZZZ")
	require.NoError(t, err)
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Equal(t, []string{msgUnknownProduct}, turn.Texts())
	assert.Zero(t, fg.count("select"))
}

func TestFetchFailureAfterAdvanceRetriesOnNextInput(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "A")
	fg.selections = []gateway.Selection{{Category: outfit.CategoryTop, NextCategory: outfit.CategoryOuter}}
	m := atRecommendation(t, fg)

	fg.fetchErr = &gateway.ConnectionError{Op: "recommend next", Err: errors.New("EOF")}
	turn, err := m.Select(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Contains(t, turn.Texts(), msgConnectionLost)
	assert.Contains(t, turn.Texts(), msgRecommendFailed+"\n"+msgRetryHint)

	turn, err = m.Select(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{msgSelectionNotAllowed}, turn.Texts())

	fg.fetchErr = nil
	fg.queue(outfit.CategoryOuter, 1, "C")
	turn = drive(t, m, "다시")
	assert.Equal(t, StateRecommendation, turn.State)
	assert.Empty(t, cmp.Diff([]tagged{{"C", outfit.ProvenanceNew}}, provenanceOf(lastCandidates(turn))))
	assert.Equal(t, outfit.CategoryOuter, m.Snapshot().Cursor.Category)
}

func TestFinalOutfitFailureRetriesInComplete(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "A")
	fg.finalErr = &gateway.RemoteError{Op: "show all", Status: 500, Detail: "internal error"}
	fg.final = outfit.FinalOutfit{TPO: "출근", TotalCount: 1}
	m := atRecommendation(t, fg, WithNarrator(fakeNarrator{err: errors.New("model unavailable")}))

	turn, err := m.Select(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, StateComplete, turn.State)
	assert.False(t, turn.HasKind(ReplyOutfit))
	assert.Nil(t, m.Snapshot().FinalOutfit)

	fg.finalErr = nil
	turn = drive(t, m, "다시 보여줘")
	assert.Equal(t, StateComplete, turn.State)
	assert.True(t, turn.HasKind(ReplyOutfit))
	assert.Equal(t, completeSummary(fg.final), turn.Texts()[len(turn.Texts())-1])
}

func TestInputDroppedWhileBusy(t *testing.T) {
	fg := newFakeGateway()
	fg.queue(outfit.CategoryTop, 0, "A")
	m := started(t, fg)
	drive(t, m, "없음", "없음", "30만원")

	fg.fetchEntered = make(chan struct{})
	fg.fetchBlock = make(chan struct{})

	type result struct {
		turn Turn
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		turn, err := m.Handle(context.Background(), "출근")
		resultCh <- result{turn, err}
	}()
	<-fg.fetchEntered

	_, err := m.Handle(context.Background(), "퇴근")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = m.Select(context.Background(), "A")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, StateTPO, m.Snapshot().State)

	close(fg.fetchBlock)
	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, StateRecommendation, res.turn.State)
	assert.Equal(t, 1, fg.count("tpo"))
}

func TestExitDeletesRemoteSessionBestEffort(t *testing.T) {
	fg := newFakeGateway()
	fg.deleteErr = &gateway.ConnectionError{Op: "delete session", Err: errors.New("connection reset")}
	m := started(t, fg)

	done := m.Exit()
	assert.Equal(t, StateExited, m.Snapshot().State)
	assert.Equal(t, done, m.Exit())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("teardown did not finish")
	}

	assert.Equal(t, "remote-session-0001", fg.deletedID)
	assert.Equal(t, 1, fg.count("delete"))

	_, err := m.Handle(context.Background(), "없음")
	assert.ErrorIs(t, err, ErrExited)
	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrExited)
}

func TestExitWaitsForInFlightInput(t *testing.T) {
	fg := newFakeGateway()
	m := started(t, fg)
	drive(t, m, "없음", "없음", "30만원")

	fg.fetchEntered = make(chan struct{})
	fg.fetchBlock = make(chan struct{})
	fg.queue(outfit.CategoryTop, 0, "A")

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		_, _ = m.Handle(context.Background(), "출근")
	}()
	<-fg.fetchEntered

	done := m.Exit()
	assert.Equal(t, StateExited, m.Snapshot().State)
	assert.Zero(t, fg.count("delete"))

	close(fg.fetchBlock)
	<-handled
	<-done
	assert.Equal(t, 1, fg.count("delete"))
}

func TestExitBeforeStartSkipsRemoteDelete(t *testing.T) {
	fg := newFakeGateway()
	m := New(fg, "pme", WithDeleteTimeout(50*time.Millisecond))

	<-m.Exit()
	assert.Empty(t, fg.Calls())
	assert.Equal(t, StateExited, m.Snapshot().State)
}

func TestObjectParticle(t *testing.T) {
	cases := map[string]string{
		"상의":  "를",
		"바지":  "를",
		"아우터": "를",
		"신발":  "을",
		"가방":  "을",
		"색상":  "을",
		"소재":  "를",
		"":    "를",
		"bag": "를",
	}
	for word, want := range cases {
		assert.Equal(t, want, objectParticle(word), word)
	}
}
