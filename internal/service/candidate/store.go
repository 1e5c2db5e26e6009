package candidate

import "github.com/zhouzirui/lookie/backend/internal/model/outfit"

// Store 保存当前展示的候选集合与上一轮的检查点，仅保留一代历史。
// Store 不加锁，由拥有它的会话状态机串行访问。
type Store struct {
	current  []outfit.Candidate
	previous []outfit.Candidate
}

// NewStore 创建空的候选仓库。
func NewStore() *Store {
	return &Store{}
}

// Current 返回当前展示集合的副本。
func (s *Store) Current() []outfit.Candidate {
	return clone(s.current)
}

// Previous 返回上一代检查点的副本。
func (s *Store) Previous() []outfit.Candidate {
	return clone(s.previous)
}

// HasPrevious 表示是否存在可恢复的上一代集合。
func (s *Store) HasPrevious() bool {
	return len(s.previous) > 0
}

// SetCurrent 替换当前展示集合。
func (s *Store) SetCurrent(set []outfit.Candidate) {
	s.current = clone(set)
}

// MergeWithPrevious 计算新一轮与上一代的合并结果，不修改任何状态。
// 结果先是 newSet（标记 new），再是 newSet 中没有出现过的上一代商品（标记 previous）。
func (s *Store) MergeWithPrevious(newSet []outfit.Candidate) []outfit.Candidate {
	return Merge(newSet, s.previous)
}

// Checkpoint 用 set 整体替换上一代集合。
func (s *Store) Checkpoint(set []outfit.Candidate) {
	s.previous = clone(set)
}

// Reset 清空上一代集合，品类切换时调用。
func (s *Store) Reset() {
	s.previous = nil
}

// Find 依次在当前集合和上一代集合中查找商品。
func (s *Store) Find(productID string) (outfit.Candidate, bool) {
	if i := outfit.IndexOf(s.current, productID); i >= 0 {
		return s.current[i], true
	}
	if i := outfit.IndexOf(s.previous, productID); i >= 0 {
		return s.previous[i], true
	}
	return outfit.Candidate{}, false
}

// Merge is the pure form of Store.MergeWithPrevious.
func Merge(newSet, previous []outfit.Candidate) []outfit.Candidate {
	merged := make([]outfit.Candidate, 0, len(newSet)+len(previous))
	seen := make(map[string]struct{}, len(newSet))

	for _, item := range newSet {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		merged = append(merged, item.WithProvenance(outfit.ProvenanceNew))
	}

	for _, item := range previous {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		merged = append(merged, item.WithProvenance(outfit.ProvenancePrevious))
	}

	return merged
}

func clone(items []outfit.Candidate) []outfit.Candidate {
	if items == nil {
		return nil
	}
	return append([]outfit.Candidate(nil), items...)
}
