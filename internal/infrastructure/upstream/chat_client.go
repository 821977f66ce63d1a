package upstream

import (
	"context"
	"net/http"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// ChatClient implements ports.ChatAPI against the retrieval-augmented
// search endpoint.
type ChatClient struct {
	c *Client
}

func NewChatClient(c *Client) *ChatClient {
	return &ChatClient{c: c}
}

type llmSearchRequest struct {
	Query     string  `json:"query"`
	FileType  string  `json:"file_type,omitempty"`
	TopK      int     `json:"k"`
	Threshold float64 `json:"similarity_threshold"`
}

// Ask sends the question plus retrieval parameters and returns the LLM
// response with its grounding contexts.
func (cc *ChatClient) Ask(ctx context.Context, token string, q domain.ChatQuery) (domain.ChatAnswer, error) {
	req := llmSearchRequest{
		Query:     q.Query,
		FileType:  q.FileType,
		TopK:      q.TopK,
		Threshold: q.Threshold,
	}

	resp, err := cc.c.DoJSON(ctx, http.MethodPost, pathSearchLLM, nil, req, token)
	if err != nil {
		return domain.ChatAnswer{}, err
	}
	if !resp.OK() {
		return domain.ChatAnswer{}, resp.AsError()
	}

	var answer domain.ChatAnswer
	if err := resp.DecodeJSON(&answer); err != nil {
		return domain.ChatAnswer{}, err
	}
	return answer, nil
}
