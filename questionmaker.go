package studypool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// QuestionGenerator produces raw questions about a topic. It may return
// fewer than count questions.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, topic string, count int) ([]GeneratedQuestion, error)
}

const (
	submitQuestionsTool   = "submit_questions"
	submitDistractorsTool = "submit_distractors"
)

// QuestionMaker generates questions and distractors through an
// OpenAI-compatible chat completion endpoint
type QuestionMaker struct {
	client *openai.Client
	model  string
	logger *LLMLogger
}

// NewQuestionMaker creates a question maker. An empty BaseURL uses the
// OpenAI default.
func NewQuestionMaker(cfg GeneratorConfig) *QuestionMaker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &QuestionMaker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// SetLogger sets the traffic logger
func (qm *QuestionMaker) SetLogger(logger *LLMLogger) {
	qm.logger = logger
}

// GenerateQuestions asks for count questions about topic
func (qm *QuestionMaker) GenerateQuestions(ctx context.Context, topic string, count int) ([]GeneratedQuestion, error) {
	VerboseLog("Requesting generated questions", "topic", topic, "count", count)

	var toolArgs struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	err := qm.callTool(ctx, "QuestionMaker",
		"You are an expert author of court reporter certification exam questions. Every question has exactly one correct answer and three plausible wrong answers.",
		qm.buildQuestionPrompt(topic, count),
		openai.FunctionDefinition{
			Name:        submitQuestionsTool,
			Description: "Submit generated exam questions",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"questions": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"question_text": map[string]interface{}{
									"type":        "string",
									"description": "The complete question, ending with a question mark",
								},
								"correct_answer": map[string]interface{}{
									"type":        "string",
									"description": "The correct answer",
								},
								"wrong_answers": map[string]interface{}{
									"type":        "array",
									"items":       map[string]interface{}{"type": "string"},
									"description": "Exactly 3 plausible but wrong answers",
								},
							},
							"required": []string{"question_text", "correct_answer", "wrong_answers"},
						},
					},
				},
				"required": []string{"questions"},
			},
		},
		&toolArgs,
	)
	if err != nil {
		return nil, err
	}

	if len(toolArgs.Questions) > count {
		toolArgs.Questions = toolArgs.Questions[:count]
	}
	VerboseLog("Generated questions", "topic", topic, "count", len(toolArgs.Questions))
	return toolArgs.Questions, nil
}

// GenerateDistractors asks for count wrong answers to a question
func (qm *QuestionMaker) GenerateDistractors(ctx context.Context, question, correct, category string, count int) ([]string, error) {
	var toolArgs struct {
		WrongAnswers []string `json:"wrong_answers"`
	}
	err := qm.callTool(ctx, "DistractorMaker",
		"You write plausible but clearly incorrect answer options for court reporter exam questions.",
		qm.buildDistractorPrompt(question, correct, category, count),
		openai.FunctionDefinition{
			Name:        submitDistractorsTool,
			Description: "Submit wrong answers",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"wrong_answers": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Plausible but incorrect answers",
					},
				},
				"required": []string{"wrong_answers"},
			},
		},
		&toolArgs,
	)
	if err != nil {
		return nil, err
	}
	return toolArgs.WrongAnswers, nil
}

// callTool sends a chat completion that must answer through the given tool
// and decodes the tool arguments into out.
func (qm *QuestionMaker) callTool(ctx context.Context, module, system, prompt string, fn openai.FunctionDefinition, out interface{}) error {
	if qm.logger != nil {
		qm.logger.LogLLMRequest(module, prompt)
	}

	resp, err := qm.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: qm.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type:     openai.ToolTypeFunction,
					Function: &fn,
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: fn.Name,
				},
			},
		},
	)
	if err != nil {
		if qm.logger != nil {
			qm.logger.LogLLMError(module, err)
		}
		return fmt.Errorf("failed to call %s: %w", fn.Name, err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("no response from generator")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return fmt.Errorf("no tool calls in response")
	}

	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != fn.Name {
		return fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	if qm.logger != nil {
		qm.logger.LogLLMResponse(module, toolCall.Function.Arguments)
	}

	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), out); err != nil {
		return fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	return nil
}

func (qm *QuestionMaker) buildQuestionPrompt(topic string, count int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple-choice questions about %s for court reporter exam preparation.\n\n", count, topic))
	sb.WriteString("Example:\n")
	sb.WriteString("Question: What is the proper format for indicating a change in speakers in a court transcript?\n")
	sb.WriteString("Correct: Start a new paragraph with the speaker's name in all caps\n")
	sb.WriteString("Wrong: Use quotation marks around the speaker's name; Place the speaker's name in parentheses; Continue on the same line with a semicolon\n\n")

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Each question must end with a question mark and contain at least 5 words\n")
	sb.WriteString("- Each question has exactly 1 correct answer and 3 wrong answers\n")
	sb.WriteString("- Every answer must be at least 2 words and all 4 answers must differ\n")
	sb.WriteString("- Do not repeat the question text inside any answer\n")
	sb.WriteString(fmt.Sprintf("- Use the %s tool to return your questions\n", submitQuestionsTool))

	return sb.String()
}

func (qm *QuestionMaker) buildDistractorPrompt(question, correct, category string, count int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Write %d wrong answers for this %s question.\n\n", count, category))
	sb.WriteString(fmt.Sprintf("Question: %s\n", question))
	sb.WriteString(fmt.Sprintf("Correct: %s\n\n", correct))
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Each wrong answer must be plausible but incorrect\n")
	sb.WriteString("- Each wrong answer must be at least 2 words and differ from the correct answer\n")
	sb.WriteString(fmt.Sprintf("- Use the %s tool to return the answers\n", submitDistractorsTool))

	return sb.String()
}
