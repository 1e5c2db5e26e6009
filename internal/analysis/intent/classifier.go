package intent

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
)

var (
	// ErrNoMatch 表示输入没有命中任何选项关键词。
	ErrNoMatch = errors.New("no option matched")
	// ErrUnknownVocabulary 表示 (类型, 品类) 没有对应的选项表。
	ErrUnknownVocabulary = errors.New("no vocabulary for feedback type and category")
)

// EmptyChoice 是空结果时用户的选择。
type EmptyChoice string

const (
	ChoiceUnknown EmptyChoice = ""
	ChoiceRestore EmptyChoice = "restore"
	ChoiceRelax   EmptyChoice = "relax"
)

// Normalize 去掉全部空白并转为小写。
func Normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ClassifyFit 未命中时返回 FitNone（不排除）。
func ClassifyFit(input string) outfit.Fit {
	if v, ok := firstMatch(fitGroups, Normalize(input)); ok {
		return outfit.Fit(v)
	}
	return outfit.FitNone
}

// ClassifyPattern 未命中时返回 PatternNone（不排除）。
func ClassifyPattern(input string) outfit.Pattern {
	if v, ok := firstMatch(patternGroups, Normalize(input)); ok {
		return outfit.Pattern(v)
	}
	return outfit.PatternNone
}

// ClassifyPrice 按 10/20/30/50 的顺序检查，全部未命中时回退到 50 万。
func ClassifyPrice(input string) outfit.PriceTier {
	normalized := Normalize(input)
	for _, group := range priceGroups {
		for _, kw := range group.Keywords {
			if strings.Contains(normalized, kw) {
				return group.Tier
			}
		}
	}
	return outfit.DefaultPriceTier
}

// ClassifyFeedbackType 识别用户想调整的属性。
func ClassifyFeedbackType(input string) (outfit.FeedbackType, bool) {
	v, ok := firstMatch(feedbackTypeGroups, Normalize(input))
	return outfit.FeedbackType(v), ok
}

// ClassifyOption 在 (类型, 品类) 的封闭选项集合中匹配输入，返回规范选项值。
func ClassifyOption(t outfit.FeedbackType, category, input string) (string, error) {
	groups := optionGroups(t, category)
	if len(groups) == 0 {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownVocabulary, t, category)
	}
	if v, ok := firstMatch(groups, Normalize(input)); ok {
		return v, nil
	}
	return "", ErrNoMatch
}

// ClassifyEmptyChoice 识别空结果后的恢复或放宽条件指令。
func ClassifyEmptyChoice(input string) EmptyChoice {
	if v, ok := firstMatch(emptyChoiceGroups, Normalize(input)); ok {
		return EmptyChoice(v)
	}
	return ChoiceUnknown
}

// Options 返回某个 (类型, 品类) 下可展示的选项，按声明顺序。
func Options(t outfit.FeedbackType, category string) []string {
	groups := optionGroups(t, category)
	values := make([]string, 0, len(groups))
	for _, g := range groups {
		values = append(values, g.Value)
	}
	return values
}

// Vocabulary 导出全部选项表：类型 -> 品类 -> 选项。
func Vocabulary() map[outfit.FeedbackType]map[string][]string {
	vocab := make(map[outfit.FeedbackType]map[string][]string, len(outfit.FeedbackTypes))
	for _, t := range outfit.FeedbackTypes {
		byCategory := make(map[string][]string, len(outfit.CategoryOrder))
		for _, c := range outfit.CategoryOrder {
			byCategory[c] = Options(t, c)
		}
		vocab[t] = byCategory
	}
	return vocab
}

func firstMatch(groups []keywordGroup, normalized string) (string, bool) {
	if normalized == "" {
		return "", false
	}
	for _, group := range groups {
		for _, kw := range group.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(normalized, Normalize(kw)) {
				return group.Value, true
			}
		}
	}
	return "", false
}
