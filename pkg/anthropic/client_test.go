package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestMockClientCreateMessage(t *testing.T) {
	m := &MockClient{}
	m.On("CreateMessage", mock.Anything, mock.Anything).Return(&MessageResponse{
		ID:      "msg_1",
		Model:   "claude-haiku-4-5-20251001",
		Content: []ContentBlock{{Type: "text", Text: "양도소득세는 자산의 양도차익에 과세합니다."}},
		Usage:   TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil)

	resp, err := m.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "양도소득세란?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Contains(t, resp.Text(), "양도소득세")
	m.AssertExpectations(t)
}

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "첫 번째 "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "두 번째"},
		},
	}
	assert.Equal(t, "첫 번째 두 번째", resp.Text())
}

func TestTokenUsageTotal(t *testing.T) {
	u := TokenUsage{InputTokens: 120, OutputTokens: 80}
	assert.Equal(t, int64(200), u.Total())
}

func TestToSDKMessagesRoles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "질문"},
		{Role: "assistant", Content: "답변"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}

func TestToSDKSystemBlocksCacheControl(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "세무 전문가 시스템 프롬프트", CacheControl: &CacheControl{TTL: "1h"}},
		{Text: "plain"},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "세무 전문가 시스템 프롬프트", blocks[0].Text)
	assert.Equal(t, "1h", string(blocks[0].CacheControl.TTL))
}
