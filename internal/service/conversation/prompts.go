package conversation

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
)

const (
	msgWelcome = "안녕하세요! 저는 오늘 스타일링을 도와드릴 'Lookie'입니다. 👀\n\n" +
		"저는 여러분의 페르소나와 TPO를 기반으로 상의, 아우터, 바지, 신발, 가방까지 완벽한 코디를 추천해드려요!\n\n" +
		"먼저, 더 나은 추천을 위해 몇 가지 질문을 드릴게요!"

	msgAskFit = "비선호하는 핏이 있나요?\n\n• 오버사이즈\n• 슬림\n• 없음"

	msgAskPattern = "비선호하는 패턴이 있나요?\n\n• 로고\n• 스트라이프\n• 체크\n• 없음"

	msgAskPrice = "옷 한 벌에 최대 얼마까지 사용하시나요?\n\n• 10만원\n• 20만원\n• 30만원\n• 50만원"

	msgAskTPO = "이제 TPO를 알려주세요!\n\n" +
		"📌 TPO는 Time(시간), Place(장소), Occasion(상황)을 의미해요.\n\n" +
		"예시:\n• 대학교 수업 듣고 친구랑 저녁 약속\n• 친구 생일파티\n• 회사 면접\n• 애인과 데이트\n\n" +
		"어떤 하루를 보내실 건가요?"

	msgPreferencesSaved = "좋아요! 선호도가 반영되었습니다. ✨"

	msgFeedbackMenu = "조금 더 취향에 맞게 추천해드릴게요!\n\n" +
		"더 구체적인 추천을 위해 어떤 부분을 바꿔보면 좋을지 골라주세요!\n" +
		"• 세부 카테고리 변경\n• 색상 변경\n• 소재 변경"

	msgNoOptionMatch = "일치하는 옵션을 찾지 못했어요. 다시 선택해주세요!"

	msgRestoredWarning = "⚠️ 현재 조건에 맞는 새로운 아이템이 없어서 이전 추천 목록을 다시 보여드릴게요!\n\n" +
		"다른 조건으로 변경하거나, 마음에 드는 아이템을 선택해주세요. 😊"

	msgEmptyChoiceOptions = "1️⃣ 이전 추천 목록 보기\n2️⃣ 조건 완화하기"

	msgEmptyResult = "아쉽게도 현재 조건에 맞는 아이템이 없어요. 😢\n\n다음 옵션을 선택해주세요:\n\n" + msgEmptyChoiceOptions

	msgRestoringPrevious = "이전 추천 목록을 다시 보여드릴게요!"

	msgNoPrevious = "이전 추천 목록이 없어요. 😢\n\n조건을 완화해볼까요? (2번 입력)"

	msgRelaxing = "조건을 완화하기 위해 비선호 요소를 다시 설정할게요!"

	msgEmptyChoiceInvalid = "죄송해요, 이해하지 못했어요. 😅\n\n" + msgEmptyChoiceOptions + "\n\n중 하나를 선택해주세요!"

	msgCompleting = "코디 추천이 완료되었어요! 🎉\n\n최종 코디를 확인하고 있어요..."

	msgAlreadyComplete = "코디가 이미 완성되었어요! ✨ 새로운 코디가 필요하면 새 대화를 시작해주세요."

	msgEmptyInput = "메시지를 입력해주세요!"

	msgConnectionLost = "서버에 연결할 수 없어요. 잠시 후 다시 시도해주세요. 🙏"

	msgBootstrapFailed = "서버 연결에 실패했어요. 😢 잠시 후 새 대화를 시작해주세요."

	msgRetryHint = "아무 메시지나 입력하시면 다시 불러올게요."

	msgSelectionNotAllowed = "지금은 아이템을 선택할 수 없어요. 추천 목록이 나온 뒤에 골라주세요!"

	msgUnknownProduct = "선택한 아이템을 찾을 수 없어요. 목록에서 다시 골라주세요!"

	msgTPOFailed = "TPO 분석 중 오류가 발생했어요. 다시 입력해주시겠어요?"

	msgRecommendFailed = "추천 중 오류가 발생했어요. 다시 시도해주시겠어요?"

	msgFeedbackFailed = "피드백 적용 중 오류가 발생했어요. 다시 시도해주세요."

	msgSelectFailed = "선택 처리 중 오류가 발생했어요. 다시 시도해주세요."

	msgPreferencesFailed = "선호도 저장 중 오류가 발생했어요. 가격대를 다시 입력해주세요."

	msgFinalOutfitFailed = "결과를 불러오는 중 오류가 발생했어요. 😢"
)

func fitAck(fit outfit.Fit) string {
	if fit == outfit.FitNone {
		return "네, 모든 핏을 포함해서 추천드릴게요! ✅"
	}
	return fmt.Sprintf("네, %s 핏을 제외하고 추천드릴게요! ✅", fit)
}

func patternAck(pattern outfit.Pattern) string {
	if pattern == outfit.PatternNone {
		return "네, 모든 패턴을 포함해서 추천드릴게요! ✅"
	}
	return fmt.Sprintf("네, %s 패턴을 제외하고 추천드릴게요! ✅", pattern)
}

func priceAck(tier outfit.PriceTier) string {
	return fmt.Sprintf("네, %d만원 이하의 상품만 추천드릴게요! ✅", int(tier)/10000)
}

func tpoAccepted(refined string) string {
	return fmt.Sprintf("좋아요! \"%s\"에 맞는 스타일을 찾아드릴게요! 🎯\n\n이제 %s부터 아이템별로 추천을 시작합니다!",
		refined, outfit.CategoryOrder[0])
}

func recommendationHeader(category string) string {
	return fmt.Sprintf("%s 추천 결과예요! 😊\n\n"+
		"마음에 드는 아이템을 클릭해서 선택하거나, 다른 옵션을 원하시면 피드백을 주세요!\n\n"+
		"👉 세부 카테고리, 색상, 소재를 변경할 수 있어요.", category)
}

func feedbackOptionsPrompt(category string, t outfit.FeedbackType, options []string) string {
	label := t.Label()
	lines := make([]string, 0, len(options))
	for _, o := range options {
		lines = append(lines, "• "+o)
	}
	return fmt.Sprintf("%s의 %s%s 변경하시는군요!\n\n다음 중 원하시는 것을 선택해주세요:\n\n%s",
		category, label, objectParticle(label), strings.Join(lines, "\n"))
}

func feedbackApplied(t outfit.FeedbackType, value string) string {
	return fmt.Sprintf("좋아요! %s: %s 조건으로 다시 찾아볼게요! 🔍", t.Label(), value)
}

func selectedMessage(category string) string {
	return fmt.Sprintf("좋아요! %s%s 선택했습니다! ✨", category, objectParticle(category))
}

func nextCategoryMessage(next string) string {
	return fmt.Sprintf("다음은 %s 추천이에요!", next)
}

func completeSummary(look outfit.FinalOutfit) string {
	return fmt.Sprintf("완벽한 코디가 완성되었어요! ✨\n\nTPO: %s\n총 %d개의 아이템이 선택되었습니다!", look.TPO, look.TotalCount)
}

// objectParticle 根据最后一个音节是否有收音选择 을/를。
func objectParticle(word string) string {
	runes := []rune(strings.TrimSpace(word))
	if len(runes) == 0 {
		return "를"
	}
	last := runes[len(runes)-1]
	if last < 0xAC00 || last > 0xD7A3 {
		return "를"
	}
	if (last-0xAC00)%28 != 0 {
		return "을"
	}
	return "를"
}
