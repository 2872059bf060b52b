package main

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const keywordPrompt = `You suggest alternative search keywords. Given a search query, reply with up to five closely related terms a user could also search for, as a single comma-separated line. Reply with the terms only.`

// KeywordAnalyzer asks a language model for terms related to a query, to
// widen searches that come back empty.
type KeywordAnalyzer struct {
	client *openai.Client
	model  string
}

func NewKeywordAnalyzer(apiKey, model string) *KeywordAnalyzer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &KeywordAnalyzer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (a *KeywordAnalyzer) RelatedKeywords(ctx context.Context, query string) ([]string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: keywordPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch related keywords: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	var keywords []string
	for _, part := range strings.Split(resp.Choices[0].Message.Content, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords, nil
}
