package gateway

import (
	"context"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
)

// Gateway 是远端推荐服务的会话接口。除 CreateSession 外的调用都携带会话 ID。
type Gateway interface {
	CreateSession(ctx context.Context) (string, error)
	SetPersona(ctx context.Context, sessionID, persona string) error
	SubmitNegativePreferences(ctx context.Context, sessionID string, prefs outfit.NegativePreferences) error
	SubmitTPO(ctx context.Context, sessionID, rawTPO, persona string) (TPOResult, error)
	FetchNextCandidates(ctx context.Context, sessionID string) (Recommendation, error)
	SubmitFeedback(ctx context.Context, sessionID string, feedback outfit.Feedback) error
	SelectItem(ctx context.Context, sessionID, productID string) (Selection, error)
	FetchFinalOutfit(ctx context.Context, sessionID string) (outfit.FinalOutfit, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// LookbookPublisher 把最终穿搭发布为可分享的 lookbook 页面。
type LookbookPublisher interface {
	GenerateLookbook(ctx context.Context, look outfit.FinalOutfit, persona string) (outfit.Lookbook, error)
}

// TPOResult 是远端对自由文本 TPO 的解析结果。
type TPOResult struct {
	Parsed   []string `json:"parsed"`
	Conflict bool     `json:"conflict"`
	Refined  string   `json:"refined"`
}

// Recommendation 是一轮候选推荐。
type Recommendation struct {
	Category             string             `json:"category"`
	CategoryIndex        int                `json:"categoryIndex"`
	TotalCategories      int                `json:"totalCategories"`
	Candidates           []outfit.Candidate `json:"candidates"`
	IsLastCategory       bool               `json:"isLastCategory"`
	RestoredFromPrevious bool               `json:"restoredFromPrevious"`
}

// Cursor 返回这一轮推荐所在的品类游标。
func (r Recommendation) Cursor() outfit.CategoryCursor {
	return outfit.CategoryCursor{Category: r.Category, Index: r.CategoryIndex, Total: r.TotalCategories}
}

// Selection 是选择商品后的推进结果。
type Selection struct {
	Category     string `json:"category"`
	NextCategory string `json:"nextCategory,omitempty"`
	IsComplete   bool   `json:"isComplete"`
}
