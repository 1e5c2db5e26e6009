package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/config"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
)

// Narrator 用人设口吻点评完成的穿搭。
type Narrator struct {
	personas persona.Store
	prompts  *PersonaPromptManager
	chain    compose.Runnable[map[string]any, *schema.Message]
	logger   *zap.Logger
}

// NewNarrator creates a narrator backed by the configured Ark chat model.
func NewNarrator(ctx context.Context, personas persona.Store, cfg config.AIConfig, logger *zap.Logger) (*Narrator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewNarratorWithModel(ctx, chatModel, personas, logger)
}

// NewNarratorWithModel compiles the narration chain around an existing chat model.
func NewNarratorWithModel(ctx context.Context, chatModel model.BaseChatModel, personas persona.Store, logger *zap.Logger) (*Narrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile narration chain: %w", err)
	}

	return &Narrator{
		personas: personas,
		prompts:  NewPersonaPromptManager(),
		chain:    runnable,
		logger:   logger,
	}, nil
}

// Narrate 返回一段简短点评。
func (n *Narrator) Narrate(ctx context.Context, personaID string, look outfit.FinalOutfit) (string, error) {
	p, ok := n.personas.FindByID(personaID)
	if !ok {
		return "", fmt.Errorf("unknown persona %q", personaID)
	}
	if len(look.Items) == 0 {
		return "", nil
	}

	response, err := n.chain.Invoke(ctx, map[string]any{
		"system": n.prompts.BuildSystemPrompt(&p),
		"query":  describeOutfit(look),
	})
	if err != nil {
		return "", fmt.Errorf("failed to run narration chain: %w", err)
	}

	n.logger.Debug("outfit narrated",
		zap.String("persona", personaID),
		zap.Int("items", len(look.Items)),
		zap.Int("length", len(response.Content)))
	return strings.TrimSpace(response.Content), nil
}

// describeOutfit 把最终穿搭整理成提示词中的用户消息。
func describeOutfit(look outfit.FinalOutfit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TPO: %s\n완성된 코디:\n", look.TPO)
	for _, item := range look.Items {
		fmt.Fprintf(&b, "- %s: %s", item.Category, item.Name)
		if item.Brand != "" {
			fmt.Fprintf(&b, " (%s)", item.Brand)
		}
		var attrs []string
		for _, a := range []string{item.Color, item.Fit, item.Texture} {
			if a != "" {
				attrs = append(attrs, a)
			}
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(attrs, ", "))
		}
		b.WriteByte('\n')
	}
	b.WriteString("이 코디를 페르소나의 말투로 짧게 평가해주세요.")
	return b.String()
}
