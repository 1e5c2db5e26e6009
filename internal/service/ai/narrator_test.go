package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
)

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

var sampleLook = outfit.FinalOutfit{
	TPO:        "회사 면접",
	TotalCount: 2,
	Items: []outfit.SelectedItem{
		{Category: outfit.CategoryTop, Name: "옥스포드 셔츠", Brand: "LOOKIE", Color: "화이트"},
		{Category: outfit.CategoryBottom, Name: "울 슬랙스", Color: "차콜", Texture: "울"},
	},
}

func TestNarrateUsesPersonaPrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "  단정한 면접룩 완성!  "}
	n, err := NewNarratorWithModel(context.Background(), fake, persona.NewMemoryStore(persona.Seed()), nil)
	require.NoError(t, err)

	text, err := n.Narrate(context.Background(), "pme", sampleLook)
	require.NoError(t, err)
	assert.Equal(t, "단정한 면접룩 완성!", text)

	require.Len(t, fake.input, 2)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Contains(t, fake.input[0].Content, "김프메")
	assert.Contains(t, fake.input[0].Content, "프레피")
	assert.Contains(t, fake.input[1].Content, "TPO: 회사 면접")
	assert.Contains(t, fake.input[1].Content, "- 상의: 옥스포드 셔츠 (LOOKIE) [화이트]")
	assert.Contains(t, fake.input[1].Content, "- 바지: 울 슬랙스 [차콜, 울]")
}

func TestNarrateErrors(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("quota exceeded")}
	n, err := NewNarratorWithModel(context.Background(), fake, persona.NewMemoryStore(persona.Seed()), nil)
	require.NoError(t, err)

	_, err = n.Narrate(context.Background(), "ob", sampleLook)
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = n.Narrate(context.Background(), "harry-potter", sampleLook)
	assert.Error(t, err)

	text, err := n.Narrate(context.Background(), "ob", outfit.FinalOutfit{})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestBuildSystemPromptFallback(t *testing.T) {
	pm := NewPersonaPromptManager()
	for _, p := range persona.Seed() {
		_, err := pm.GetPromptTemplate(p.ID)
		assert.NoError(t, err, p.ID)
	}

	custom := persona.Persona{ID: "guest", Name: "게스트", Title: "자유", Tone: "친절", PromptHint: "편하게"}
	prompt := pm.BuildSystemPrompt(&custom)
	assert.Contains(t, prompt, "게스트님")
	assert.Contains(t, prompt, "편하게")
}
