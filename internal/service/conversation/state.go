package conversation

import "github.com/zhouzirui/lookie/backend/internal/model/outfit"

// State 是会话状态机的状态。
type State string

const (
	StateGreeting            State = "GREETING"
	StateNegativeFit         State = "NEGATIVE_FIT"
	StateNegativePattern     State = "NEGATIVE_PATTERN"
	StateNegativePrice       State = "NEGATIVE_PRICE"
	StateTPO                 State = "TPO"
	StateRecommendation      State = "RECOMMENDATION"
	StateFeedbackSubCategory State = "FEEDBACK_SUBCATEGORY"
	StateFeedbackColor       State = "FEEDBACK_COLOR"
	StateFeedbackTexture     State = "FEEDBACK_TEXTURE"
	StateEmptyChoice         State = "EMPTY_CHOICE"
	StateComplete            State = "COMPLETE"
	StateExited              State = "EXITED"
)

// feedbackState 把反馈类型映射到对应的选项收集状态。
func feedbackState(t outfit.FeedbackType) State {
	switch t {
	case outfit.FeedbackColor:
		return StateFeedbackColor
	case outfit.FeedbackTexture:
		return StateFeedbackTexture
	default:
		return StateFeedbackSubCategory
	}
}

// FeedbackType 返回 FEEDBACK_* 状态对应的反馈类型。
func (s State) FeedbackType() (outfit.FeedbackType, bool) {
	switch s {
	case StateFeedbackSubCategory:
		return outfit.FeedbackSubCategory, true
	case StateFeedbackColor:
		return outfit.FeedbackColor, true
	case StateFeedbackTexture:
		return outfit.FeedbackTexture, true
	default:
		return "", false
	}
}

// AcceptsSelection 表示该状态下是否允许选择候选商品。
func (s State) AcceptsSelection() bool {
	switch s {
	case StateRecommendation, StateFeedbackSubCategory, StateFeedbackColor, StateFeedbackTexture, StateEmptyChoice:
		return true
	default:
		return false
	}
}
