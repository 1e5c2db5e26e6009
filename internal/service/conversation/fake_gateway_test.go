package conversation

import (
	"context"
	"sync"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

// fakeGateway 记录调用顺序，并按队列返回预设的推荐结果。
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	sessionID string

	createErr    error
	personaErr   error
	negativesErr error
	tpoErr       error
	feedbackErr  error
	fetchErr     error
	selectErr    error
	finalErr     error
	deleteErr    error

	refined    string
	recs       []gateway.Recommendation
	selections []gateway.Selection
	final      outfit.FinalOutfit

	lastPrefs    outfit.NegativePreferences
	lastFeedback outfit.Feedback
	lastSelected string
	deletedID    string

	fetchEntered chan struct{}
	fetchBlock   chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessionID: "remote-session-0001", refined: "주말 데이트"}
}

func (f *fakeGateway) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeGateway) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGateway) count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeGateway) CreateSession(context.Context) (string, error) {
	f.record("create")
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.sessionID, nil
}

func (f *fakeGateway) SetPersona(_ context.Context, _, _ string) error {
	f.record("persona")
	return f.personaErr
}

func (f *fakeGateway) SubmitNegativePreferences(_ context.Context, _ string, prefs outfit.NegativePreferences) error {
	f.record("negatives")
	if f.negativesErr != nil {
		return f.negativesErr
	}
	f.lastPrefs = prefs
	return nil
}

func (f *fakeGateway) SubmitTPO(_ context.Context, _, raw, _ string) (gateway.TPOResult, error) {
	f.record("tpo")
	if f.tpoErr != nil {
		return gateway.TPOResult{}, f.tpoErr
	}
	return gateway.TPOResult{Parsed: []string{raw}, Refined: f.refined}, nil
}

func (f *fakeGateway) FetchNextCandidates(ctx context.Context, _ string) (gateway.Recommendation, error) {
	f.record("fetch")
	if f.fetchEntered != nil {
		f.fetchEntered <- struct{}{}
	}
	if f.fetchBlock != nil {
		select {
		case <-f.fetchBlock:
		case <-ctx.Done():
			return gateway.Recommendation{}, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return gateway.Recommendation{}, f.fetchErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.recs) == 0 {
		return gateway.Recommendation{}, nil
	}
	rec := f.recs[0]
	f.recs = f.recs[1:]
	return rec, nil
}

func (f *fakeGateway) SubmitFeedback(_ context.Context, _ string, fb outfit.Feedback) error {
	f.record("feedback")
	if f.feedbackErr != nil {
		return f.feedbackErr
	}
	f.lastFeedback = fb
	return nil
}

func (f *fakeGateway) SelectItem(_ context.Context, _, productID string) (gateway.Selection, error) {
	f.record("select")
	if f.selectErr != nil {
		return gateway.Selection{}, f.selectErr
	}
	f.lastSelected = productID
	if len(f.selections) == 0 {
		return gateway.Selection{IsComplete: true}, nil
	}
	sel := f.selections[0]
	f.selections = f.selections[1:]
	return sel, nil
}

func (f *fakeGateway) FetchFinalOutfit(context.Context, string) (outfit.FinalOutfit, error) {
	f.record("final")
	if f.finalErr != nil {
		return outfit.FinalOutfit{}, f.finalErr
	}
	return f.final, nil
}

func (f *fakeGateway) DeleteSession(_ context.Context, sessionID string) error {
	f.record("delete")
	f.mu.Lock()
	f.deletedID = sessionID
	f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeGateway) queue(category string, index int, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, gateway.Recommendation{
		Category:        category,
		CategoryIndex:   index,
		TotalCategories: len(outfit.CategoryOrder),
		Candidates:      candidates(ids...),
	})
}

func (f *fakeGateway) queueRestored(category string, index int, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, gateway.Recommendation{
		Category:             category,
		CategoryIndex:        index,
		TotalCategories:      len(outfit.CategoryOrder),
		Candidates:           candidates(ids...),
		RestoredFromPrevious: true,
	})
}

func candidates(ids ...string) []outfit.Candidate {
	out := make([]outfit.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, outfit.Candidate{ProductID: id, Name: "상품 " + id, Price: "39000"})
	}
	return out
}

type fakeNarrator struct {
	text string
	err  error
}

func (n fakeNarrator) Narrate(context.Context, string, outfit.FinalOutfit) (string, error) {
	return n.text, n.err
}
