package intent

import "github.com/zhouzirui/lookie/backend/internal/model/outfit"

// keywordGroup 把一组同义关键词映射到一个规范取值，按声明顺序匹配。
type keywordGroup struct {
	Value    string
	Keywords []string
}

var fitGroups = []keywordGroup{
	{Value: string(outfit.FitOversized), Keywords: []string{"오버", "over"}},
	{Value: string(outfit.FitSlim), Keywords: []string{"슬림", "slim"}},
}

var patternGroups = []keywordGroup{
	{Value: string(outfit.PatternLogo), Keywords: []string{"로고", "logo"}},
	{Value: string(outfit.PatternStripe), Keywords: []string{"스트라이프", "줄무늬", "stripe"}},
	{Value: string(outfit.PatternCheck), Keywords: []string{"체크", "check"}},
}

type priceGroup struct {
	Tier     outfit.PriceTier
	Keywords []string
}

var priceGroups = []priceGroup{
	{Tier: outfit.Price100K, Keywords: []string{"10"}},
	{Tier: outfit.Price200K, Keywords: []string{"20"}},
	{Tier: outfit.Price300K, Keywords: []string{"30"}},
	{Tier: outfit.Price500K, Keywords: []string{"50"}},
}

var feedbackTypeGroups = []keywordGroup{
	{Value: string(outfit.FeedbackSubCategory), Keywords: []string{"세부", "카테고리"}},
	{Value: string(outfit.FeedbackColor), Keywords: []string{"색상", "색"}},
	{Value: string(outfit.FeedbackTexture), Keywords: []string{"소재"}},
}

var emptyChoiceGroups = []keywordGroup{
	{Value: string(ChoiceRestore), Keywords: []string{"1", "이전"}},
	{Value: string(ChoiceRelax), Keywords: []string{"2", "완화"}},
}

// subCategoryGroups 按品类声明细分类选项。
var subCategoryGroups = map[string][]keywordGroup{
	outfit.CategoryTop: {
		{Value: "긴소매 티셔츠", Keywords: []string{"긴소매티셔츠", "긴소매", "긴팔"}},
		{Value: "니트/스웨터", Keywords: []string{"니트", "스웨터"}},
		{Value: "후드 티셔츠", Keywords: []string{"후드티셔츠", "후드"}},
		{Value: "피케/카라 티셔츠", Keywords: []string{"피케", "카라"}},
		{Value: "맨투맨/스웨트", Keywords: []string{"맨투맨", "스웨트"}},
		{Value: "셔츠/블라우스", Keywords: []string{"셔츠", "블라우스"}},
	},
	outfit.CategoryOuter: {
		{Value: "롱패딩/헤비 아우터", Keywords: []string{"롱패딩"}},
		{Value: "무스탕/퍼", Keywords: []string{"무스탕", "퍼"}},
		{Value: "플리스/뽀글이", Keywords: []string{"플리스", "뽀글이"}},
		{Value: "겨울 싱글 코트", Keywords: []string{"코트"}},
		{Value: "숏패딩/헤비 아우터", Keywords: []string{"숏패딩"}},
		{Value: "슈트/블레이저 재킷", Keywords: []string{"슈트", "블레이저", "재킷", "수트", "자켓"}},
		{Value: "카디건", Keywords: []string{"카디건", "가디건"}},
		{Value: "후드 집업", Keywords: []string{"후드집업", "집업"}},
	},
	outfit.CategoryBottom: {
		{Value: "데님 팬츠", Keywords: []string{"데님", "청바지"}},
		{Value: "코튼 팬츠", Keywords: []string{"코튼"}},
		{Value: "슈트 팬츠/슬랙스", Keywords: []string{"슈트팬츠", "슬랙스"}},
		{Value: "트레이닝/조거 팬츠", Keywords: []string{"트레이닝", "조거", "고무줄"}},
	},
	outfit.CategoryShoes: {
		{Value: "스니커즈", Keywords: []string{"스니커즈", "운동화"}},
		{Value: "부츠/워커", Keywords: []string{"부츠", "워커"}},
		{Value: "구두", Keywords: []string{"구두"}},
		{Value: "패딩/퍼 신발", Keywords: []string{"퍼신발", "패딩", "털"}},
	},
	outfit.CategoryBag: {
		{Value: "백팩", Keywords: []string{"백팩", "책가방"}},
		{Value: "메신저/크로스 백", Keywords: []string{"메신저", "크로스"}},
		{Value: "에코백", Keywords: []string{"에코백"}},
		{Value: "숄더백", Keywords: []string{"숄더"}},
	},
}

// colorKeywords 声明每种颜色的同义词，品类可选颜色见 colorsByCategory。
var colorKeywords = map[string][]string{
	"블랙":  {"블랙", "검정", "black"},
	"화이트": {"화이트", "하얀색", "흰색", "흰", "하얀", "white"},
	"차콜":  {"차콜", "charcoal"},
	"그린":  {"그린", "green"},
	"그레이": {"그레이", "회색", "gray", "grey"},
	"네이비": {"네이비", "남색", "navy"},
	"브라운": {"브라운", "갈색", "brown"},
	"핑크":  {"핑크", "분홍", "pink"},
	"블루":  {"블루", "파란", "하늘", "blue"},
	"버건디": {"버건디", "빨간", "빨강", "burgundy"},
}

var colorsByCategory = map[string][]string{
	outfit.CategoryTop:    {"블랙", "화이트", "차콜", "그린", "그레이", "네이비", "브라운", "핑크", "블루", "버건디"},
	outfit.CategoryOuter:  {"블랙", "화이트", "차콜", "그린", "그레이", "네이비", "브라운", "핑크", "블루", "버건디"},
	outfit.CategoryBottom: {"블랙", "화이트", "차콜", "그레이", "네이비", "브라운", "블루"},
	outfit.CategoryShoes:  {"블랙", "화이트", "차콜", "그레이", "네이비", "브라운", "블루"},
	outfit.CategoryBag:    {"블랙", "화이트", "차콜", "그린", "그레이", "네이비", "브라운", "블루", "버건디"},
}

var textureKeywords = map[string][]string{
	"면":      {"면", "cotton"},
	"니트":     {"니트", "knit"},
	"폴리에스테르": {"폴리에스테르", "폴리", "polyester"},
	"나일론":    {"나일론", "nylon"},
	"울":      {"울", "wool"},
	"천연가죽":   {"천연가죽"},
	"스웨이드":   {"스웨이드", "suede"},
	"인조가죽":   {"인조가죽"},
}

var texturesByCategory = map[string][]string{
	outfit.CategoryTop:    {"면", "니트", "폴리에스테르"},
	outfit.CategoryBottom: {"폴리에스테르", "면", "나일론"},
	outfit.CategoryOuter:  {"나일론", "울", "니트", "면", "폴리에스테르"},
	outfit.CategoryShoes:  {"천연가죽", "스웨이드", "폴리에스테르", "인조가죽"},
	outfit.CategoryBag:    {"나일론", "면", "폴리에스테르"},
}

// optionGroups 返回 (反馈类型, 品类) 对应的封闭选项集合。
func optionGroups(t outfit.FeedbackType, category string) []keywordGroup {
	switch t {
	case outfit.FeedbackSubCategory:
		return subCategoryGroups[category]
	case outfit.FeedbackColor:
		return expand(colorsByCategory[category], colorKeywords)
	case outfit.FeedbackTexture:
		return expand(texturesByCategory[category], textureKeywords)
	default:
		return nil
	}
}

func expand(values []string, keywords map[string][]string) []keywordGroup {
	if len(values) == 0 {
		return nil
	}
	groups := make([]keywordGroup, 0, len(values))
	for _, v := range values {
		groups = append(groups, keywordGroup{Value: v, Keywords: keywords[v]})
	}
	return groups
}
