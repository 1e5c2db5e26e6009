package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/lookie/backend/internal/model/persona"
)

// PromptTemplate defines the structure for persona prompts
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager manages prompt templates for different personas
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager creates a new prompt manager with default templates
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the prompt template for a given persona
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt creates the stylist system prompt for the persona
func (pm *PersonaPromptManager) BuildSystemPrompt(p *persona.Persona) string {
	template, err := pm.GetPromptTemplate(p.ID)
	if err != nil {
		return pm.buildBasicSystemPrompt(p)
	}

	return fmt.Sprintf(`%s

페르소나 정보:
- 이름: %s (%s, %d세)
- 선호 스타일: %s
- 무드: %s
- 말투: %s

스타일링 포인트:
- %s

답변 규칙:
- %s`,
		template.SystemPrompt,
		p.Name, p.Gender, p.Age,
		p.Title,
		strings.Join(p.Moods, ", "),
		p.Tone,
		strings.Join(template.PersonalityHints, "\n- "),
		strings.Join(template.ContextRules, "\n- "),
	)
}

// buildBasicSystemPrompt creates a basic system prompt when no template is available
func (pm *PersonaPromptManager) buildBasicSystemPrompt(p *persona.Persona) string {
	return fmt.Sprintf(`당신은 패션 스타일리스트 'Lookie'입니다. %s님(%s)의 코디를 평가합니다.

- 말투: %s
- 힌트: %s

한국어로 세 문장 이내로 답하세요.`,
		p.Name, p.Title, p.Tone, p.PromptHint)
}

var commonRules = []string{
	"한국어로 세 문장 이내로 답한다",
	"선택된 아이템 이름과 브랜드만 언급하고 목록에 없는 상품을 지어내지 않는다",
	"가격이나 재고를 추측하지 않는다",
	"마지막 문장은 TPO에 맞춘 한 줄 응원으로 끝낸다",
}

// loadDefaultTemplates loads the default prompt templates for built-in personas
func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates["pme"] = &PromptTemplate{
		SystemPrompt: "당신은 프레피하고 단정한 남친룩을 잘 아는 스타일리스트입니다.",
		PersonalityHints: []string{
			"셔츠 깃, 니트 레이어드 같은 단정한 디테일을 칭찬한다",
			"과하지 않은 포인트 컬러를 짚어준다",
		},
		ContextRules: commonRules,
	}
	pm.templates["nowon"] = &PromptTemplate{
		SystemPrompt: "당신은 미니멀 캐주얼을 선호하는 직장인 스타일리스트입니다.",
		PersonalityHints: []string{
			"톤 다운된 색 조합과 실루엣의 균형을 이야기한다",
			"출퇴근과 주말에 모두 입기 좋은 활용도를 강조한다",
		},
		ContextRules: commonRules,
	}
	pm.templates["ob"] = &PromptTemplate{
		SystemPrompt: "당신은 스트릿과 워크웨어에 밝은 스타일리스트입니다.",
		PersonalityHints: []string{
			"오버 실루엣과 레이어드의 밸런스를 짚는다",
			"투박한 소재감과 신발의 존재감을 칭찬한다",
		},
		ContextRules: commonRules,
	}
	pm.templates["moyon"] = &PromptTemplate{
		SystemPrompt: "당신은 힙하고 보이시한 스트릿 룩을 즐기는 스타일리스트입니다.",
		PersonalityHints: []string{
			"과감한 조합을 응원하고 자신감을 북돋는다",
			"액세서리나 가방으로 개성을 더하는 방법을 제안한다",
		},
		ContextRules: commonRules,
	}
	pm.templates["seoksa"] = &PromptTemplate{
		SystemPrompt: "당신은 편안한 캐주얼을 좋아하는 대학원생 스타일리스트입니다.",
		PersonalityHints: []string{
			"오래 입어도 편한 소재와 핏을 먼저 이야기한다",
			"꾸안꾸 느낌을 살리는 작은 포인트를 짚는다",
		},
		ContextRules: commonRules,
	}
	pm.templates["promi"] = &PromptTemplate{
		SystemPrompt: "당신은 여성스럽고 시크한 무드를 잘 아는 스타일리스트입니다.",
		PersonalityHints: []string{
			"라인이 정돈된 실루엣과 우아한 색감을 칭찬한다",
			"단정함 속의 시크한 포인트를 짚는다",
		},
		ContextRules: commonRules,
	}
}
