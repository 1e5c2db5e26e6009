package outfit

// FeedbackType 对应远端 /feedback 的 type 字段。
type FeedbackType string

const (
	FeedbackSubCategory FeedbackType = "sub_cat_name"
	FeedbackColor       FeedbackType = "color"
	FeedbackTexture     FeedbackType = "texture"
)

// FeedbackTypes 按菜单展示顺序列出全部反馈类型。
var FeedbackTypes = []FeedbackType{FeedbackSubCategory, FeedbackColor, FeedbackTexture}

// Label 返回面向用户的韩文名称。
func (t FeedbackType) Label() string {
	switch t {
	case FeedbackSubCategory:
		return "세부 카테고리"
	case FeedbackColor:
		return "색상"
	case FeedbackTexture:
		return "소재"
	default:
		return string(t)
	}
}

// Feedback 是一次硬约束反馈。
type Feedback struct {
	Type   FeedbackType `json:"type"`
	Values []string     `json:"values"`
}
