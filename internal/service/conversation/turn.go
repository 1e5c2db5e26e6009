package conversation

import "github.com/zhouzirui/lookie/backend/internal/model/outfit"

// ReplyKind 区分回复的展示方式。
type ReplyKind string

const (
	ReplyText       ReplyKind = "text"
	ReplyWarning    ReplyKind = "warning"
	ReplyError      ReplyKind = "error"
	ReplyCandidates ReplyKind = "candidates"
	ReplyOutfit     ReplyKind = "outfit"
)

// Reply 是机器人的一条输出。
type Reply struct {
	Kind       ReplyKind           `json:"kind"`
	Text       string              `json:"text,omitempty"`
	Category   string              `json:"category,omitempty"`
	Candidates []outfit.Candidate  `json:"candidates,omitempty"`
	Outfit     *outfit.FinalOutfit `json:"outfit,omitempty"`
}

// Turn 是一次输入处理完成后的结果。
type Turn struct {
	State   State   `json:"state"`
	Replies []Reply `json:"replies"`
}

// Texts 返回全部文本类回复，便于日志与测试。
func (t Turn) Texts() []string {
	texts := make([]string, 0, len(t.Replies))
	for _, r := range t.Replies {
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	return texts
}

// HasKind 表示是否包含某类回复。
func (t Turn) HasKind(kind ReplyKind) bool {
	for _, r := range t.Replies {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func (t *Turn) say(text string) {
	t.Replies = append(t.Replies, Reply{Kind: ReplyText, Text: text})
}

func (t *Turn) warn(text string) {
	t.Replies = append(t.Replies, Reply{Kind: ReplyWarning, Text: text})
}

func (t *Turn) fail(text string) {
	t.Replies = append(t.Replies, Reply{Kind: ReplyError, Text: text})
}

func (t *Turn) showCandidates(category string, items []outfit.Candidate) {
	t.Replies = append(t.Replies, Reply{
		Kind:       ReplyCandidates,
		Category:   category,
		Candidates: append([]outfit.Candidate(nil), items...),
	})
}

func (t *Turn) showOutfit(look outfit.FinalOutfit) {
	t.Replies = append(t.Replies, Reply{Kind: ReplyOutfit, Outfit: &look})
}

// Snapshot 是状态机的只读视图。
type Snapshot struct {
	RemoteSessionID string                     `json:"remoteSessionId,omitempty"`
	Persona         string                     `json:"persona"`
	State           State                      `json:"state"`
	Preferences     outfit.NegativePreferences `json:"preferences"`
	Cursor          outfit.CategoryCursor      `json:"cursor"`
	TPO             string                     `json:"tpo,omitempty"`
	Candidates      []outfit.Candidate         `json:"candidates,omitempty"`
	HasPrevious     bool                       `json:"hasPrevious"`
	FinalOutfit     *outfit.FinalOutfit        `json:"finalOutfit,omitempty"`
	Halted          bool                       `json:"halted,omitempty"`
}
