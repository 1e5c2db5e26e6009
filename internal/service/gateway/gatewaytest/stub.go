// Package gatewaytest provides an in-memory recommendation backend for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

// PerRound 是每轮推荐返回的候选数量。
const PerRound = 3

type session struct {
	persona  string
	prefs    outfit.NegativePreferences
	tpo      string
	index    int
	round    int
	selected []outfit.SelectedItem
}

// Stub 按固定品类顺序推荐，每轮生成 PerRound 个可预测 ID 的候选。
type Stub struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]*session
	deleted  []string

	// CreateErr 非空时 CreateSession 返回该错误。
	CreateErr error
}

// NewStub 创建空的 Stub。
func NewStub() *Stub {
	return &Stub{sessions: make(map[string]*session)}
}

// ProductID 返回第 index 个品类第 round 轮第 i 个候选的 ID。
func ProductID(index, round, i int) string {
	return fmt.Sprintf("p-%d-%d-%d", index, round, i)
}

// Deleted 返回已删除的远端会话 ID。
func (s *Stub) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// Sessions 返回仍存在的远端会话数量。
func (s *Stub) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Stub) get(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, &gateway.RemoteError{Op: "lookup", Status: 404, Detail: "Session not found"}
	}
	return sess, nil
}

func (s *Stub) CreateSession(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	s.nextID++
	id := fmt.Sprintf("stub-session-%04d", s.nextID)
	s.sessions[id] = &session{prefs: outfit.DefaultNegativePreferences()}
	return id, nil
}

func (s *Stub) SetPersona(_ context.Context, sessionID, persona string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.persona = persona
	return nil
}

func (s *Stub) SubmitNegativePreferences(_ context.Context, sessionID string, prefs outfit.NegativePreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.prefs = prefs
	return nil
}

func (s *Stub) SubmitTPO(_ context.Context, sessionID, rawTPO, _ string) (gateway.TPOResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(sessionID)
	if err != nil {
		return gateway.TPOResult{}, err
	}
	sess.tpo = rawTPO
	return gateway.TPOResult{Parsed: []string{rawTPO}, Refined: rawTPO}, nil
}

func (s *Stub) FetchNextCandidates(_ context.Context, sessionID string) (gateway.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(sessionID)
	if err != nil {
		return gateway.Recommendation{}, err
	}
	if sess.index >= len(outfit.CategoryOrder) {
		return gateway.Recommendation{}, &gateway.RemoteError{Op: "recommend next", Status: 400, Detail: "All categories completed"}
	}

	category := outfit.CategoryOrder[sess.index]
	items := make([]outfit.Candidate, 0, PerRound)
	for i := range PerRound {
		items = append(items, outfit.Candidate{
			ProductID:   ProductID(sess.index, sess.round, i),
			Name:        fmt.Sprintf("%s %d", category, i+1),
			Brand:       "LOOKIE",
			Price:       "49000",
			SubCategory: category,
		})
	}
	sess.round++

	return gateway.Recommendation{
		Category:        category,
		CategoryIndex:   sess.index,
		TotalCategories: len(outfit.CategoryOrder),
		Candidates:      items,
		IsLastCategory:  sess.index == len(outfit.CategoryOrder)-1,
	}, nil
}

func (s *Stub) SubmitFeedback(_ context.Context, sessionID string, _ outfit.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.get(sessionID)
	return err
}

func (s *Stub) SelectItem(_ context.Context, sessionID, productID string) (gateway.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(sessionID)
	if err != nil {
		return gateway.Selection{}, err
	}

	category := outfit.CategoryOrder[sess.index]
	sess.selected = append(sess.selected, outfit.SelectedItem{
		ProductID: productID,
		Name:      category + " 선택",
		Category:  category,
		Brand:     "LOOKIE",
		Price:     "49000",
	})
	sess.index++
	sess.round = 0

	if sess.index >= len(outfit.CategoryOrder) {
		return gateway.Selection{Category: category, IsComplete: true}, nil
	}
	return gateway.Selection{Category: category, NextCategory: outfit.CategoryOrder[sess.index]}, nil
}

func (s *Stub) FetchFinalOutfit(_ context.Context, sessionID string) (outfit.FinalOutfit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(sessionID)
	if err != nil {
		return outfit.FinalOutfit{}, err
	}
	return outfit.FinalOutfit{
		TPO:        sess.tpo,
		TotalCount: len(sess.selected),
		Items:      append([]outfit.SelectedItem(nil), sess.selected...),
	}, nil
}

func (s *Stub) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	s.deleted = append(s.deleted, sessionID)
	return nil
}

func (s *Stub) GenerateLookbook(_ context.Context, look outfit.FinalOutfit, persona string) (outfit.Lookbook, error) {
	id := fmt.Sprintf("%s-%d", persona, look.TotalCount)
	return outfit.Lookbook{
		OutfitID:    id,
		LookbookURL: "https://lookie.example/lookbook/" + id,
		QRCodeURL:   "https://lookie.example/qr/" + id + ".png",
		ExpiresAt:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

var (
	_ gateway.Gateway           = (*Stub)(nil)
	_ gateway.LookbookPublisher = (*Stub)(nil)
)
