package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/echowrite/echowrite/internal/config"
)

const generateSystemPrompt = `You are a professional social media content creator and copywriter. Your task is to create engaging, human-written social media posts that sound natural and authentic.

Key guidelines:
- Write in a conversational, human tone
- Create longer, more detailed posts (aim for 3-5 paragraphs)
- Focus on storytelling and providing value
- Avoid excessive emojis (use sparingly, maximum 1-2 per post)
- Make content that people would actually want to read and share
- Include actionable insights or tips when relevant
- Write as if you're a knowledgeable expert sharing insights with your audience

Generate the best social media post possible for the user's request. If the user provides critique, respond with a revised version of your previous attempts.`

const critiqueSystemPrompt = `You are a professional social media strategist and content reviewer. Your task is to provide constructive feedback and recommendations for social media posts.

Key guidelines:
- Provide detailed, actionable feedback
- Focus on engagement, clarity, and value
- Suggest improvements for length, tone, and structure
- Recommend ways to make content more shareable
- Consider the target audience and platform best practices
- Be specific about what works and what could be improved
- Suggest alternative approaches or angles

Generate comprehensive critique and recommendations for the user's post.`

// OpenAIClient implements TextGenerator against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIClient struct {
	cfg    *config.Config
	client *http.Client
}

func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	timeout := cfg.AITimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) GeneratePost(input, language string, history []Turn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: generateSystemPrompt})
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: input})

	return c.complete(chatRequest{
		Model:       c.cfg.OpenAIModel,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   800,
	})
}

func (c *OpenAIClient) Critique(post, language string) (string, error) {
	return c.complete(chatRequest{
		Model: c.cfg.OpenAIModel,
		Messages: []chatMessage{
			{Role: "system", Content: critiqueSystemPrompt},
			{Role: "user", Content: "Critique this post and provide feedback: " + post},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
}

func (c *OpenAIClient) complete(reqBody chatRequest) (string, error) {
	if c.cfg.OpenAIAPIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.OpenAIAPIURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("completion API error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
