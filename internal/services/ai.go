package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/eproba/eproba-api/internal/constants"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
)

type AIService struct {
	client *openai.Client
}

type DraftedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func NewAIService(apiKey string) *AIService {
	if apiKey == "" {
		return nil
	}
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// DraftWorksheetTasks asks the model for a task list matching a goal
// description, for example a rank requirement the scout is working
// towards.
func (s *AIService) DraftWorksheetTasks(ctx context.Context, goal string) ([]DraftedTask, error) {
	if s == nil || s.client == nil {
		return nil, ErrAIServiceNotConfigured
	}

	prompt := fmt.Sprintf(`You are an assistant for scout leaders preparing progression worksheets.
Draft a list of concrete, checkable tasks for the following goal:

%s

Return a JSON array in this exact shape:
[
  {
    "title": "short task label",
    "description": "what exactly the scout has to do and how it is verified",
    "category": "general or individual"
  }
]

Rules:
- at most %d tasks
- "category" must be exactly "general" or "individual"
- return JSON only, no commentary`, goal, constants.MaxGeneratedTasks)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	content := resp.Choices[0].Message.Content

	var drafted []DraftedTask
	if err := json.Unmarshal([]byte(content), &drafted); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	valid := make([]DraftedTask, 0, len(drafted))
	for _, task := range drafted {
		if strings.TrimSpace(task.Title) == "" {
			continue
		}
		if task.Category != string(models.TaskCategoryIndividual) {
			task.Category = string(models.TaskCategoryGeneral)
		}
		valid = append(valid, task)
		if len(valid) == constants.MaxGeneratedTasks {
			break
		}
	}
	if len(valid) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	return valid, nil
}
