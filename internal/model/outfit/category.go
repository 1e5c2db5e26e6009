package outfit

import "sort"

// Category labels as used by the recommendation service.
const (
	CategoryTop    = "상의"
	CategoryOuter  = "아우터"
	CategoryBottom = "바지"
	CategoryShoes  = "신발"
	CategoryBag    = "가방"
)

// CategoryOrder 是远端服务推进品类的固定顺序。
var CategoryOrder = []string{CategoryTop, CategoryOuter, CategoryBottom, CategoryShoes, CategoryBag}

// CategoryCursor 指向当前正在推荐的品类，远端推进时整体替换。
type CategoryCursor struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	Total    int    `json:"total,omitempty"`
}

// SortCategories orders labels by CategoryOrder; unknown labels go last, alphabetically.
func SortCategories(labels []string) []string {
	rank := make(map[string]int, len(CategoryOrder))
	for i, c := range CategoryOrder {
		rank[c] = i
	}

	sorted := append([]string(nil), labels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, okI := rank[sorted[i]]
		rj, okJ := rank[sorted[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI:
			return true
		case okJ:
			return false
		default:
			return sorted[i] < sorted[j]
		}
	})
	return sorted
}
