package plangen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goalpal/goalpal/internal/llm"
	"github.com/goalpal/goalpal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter returns queued responses in order, then repeats the last.
type scriptedCompleter struct {
	responses []llm.Completion
	err       error
	calls     int
}

func (c *scriptedCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	i := c.calls - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	resp := c.responses[i]
	return &resp, nil
}

func testRequest() Request {
	sub := "math-algebra"
	return Request{
		Target: &model.Target{
			ID:            "t1",
			Subject:       "Math",
			Title:         "Master algebra basics",
			Description:   "Linear equations and graphing",
			SubcategoryID: &sub,
		},
		GoGetter:      &model.GoGetter{ID: "g1", Name: "Jordan", Grade: "7"},
		StartDate:     time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
		DailyMinutes:  45,
		PreferredDays: []int{0, 2, 4},
		Mode:          ModeDraft,
	}
}

const validPlanJSON = `{
  "title": "Algebra Sprint",
  "overview": "Four weeks of algebra.",
  "weeks": [
    {
      "week_number": 1,
      "title": "Foundations",
      "description": "Variables and expressions",
      "tasks": [
        {"day_of_week": 0, "sequence_in_day": 1, "title": "Read intro",
         "description": "Chapter 1", "estimated_minutes": 30,
         "task_type": "reading", "xp_reward": 30, "is_optional": false}
      ]
    }
  ]
}`

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(testRequest())

	assert.Contains(t, prompt, "Jordan (Grade 7)")
	assert.Contains(t, prompt, "Subject: Math")
	assert.Contains(t, prompt, "2026-03-09 to 2026-04-05 (4 week(s))")
	assert.Contains(t, prompt, "Daily study time available: 45 minutes")
	assert.Contains(t, prompt, "Monday, Wednesday, Friday")
	assert.NotContains(t, prompt, "Extra instructions")
}

func TestBuildPromptDefaults(t *testing.T) {
	req := testRequest()
	req.DailyMinutes = 0
	req.PreferredDays = nil
	req.ExtraInstructions = "Keep continuity with prior weeks."

	prompt := buildPrompt(req)
	assert.Contains(t, prompt, "Daily study time available: 60 minutes")
	assert.Contains(t, prompt, "Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday")
	assert.Contains(t, prompt, "Extra instructions: Keep continuity with prior weeks.")
}

func TestParsePlanStripsFences(t *testing.T) {
	fenced := "```json\n" + validPlanJSON + "\n```"

	plan, err := parsePlan(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Algebra Sprint", plan.Title)
	require.Len(t, plan.Weeks, 1)
	require.Len(t, plan.Weeks[0].Tasks, 1)
	assert.Equal(t, "reading", plan.Weeks[0].Tasks[0].TaskType)
}

func TestParsePlanRejectsEmpty(t *testing.T) {
	_, err := parsePlan(`{}`)
	assert.Error(t, err)

	_, err = parsePlan(`not json at all`)
	assert.Error(t, err)
}

func TestGenerateReasksOnMalformedJSON(t *testing.T) {
	completer := &scriptedCompleter{responses: []llm.Completion{
		{Text: "here is your plan:", PromptTokens: 100, CompletionTokens: 10},
		{Text: validPlanJSON, PromptTokens: 100, CompletionTokens: 200},
	}}
	gen := NewLLMGenerator(completer)

	plan, err := gen.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, completer.calls)
	assert.Equal(t, "Algebra Sprint", plan.Title)

	// Token usage accumulates across attempts.
	assert.Equal(t, 200, plan.PromptTokens)
	assert.Equal(t, 210, plan.CompletionTokens)
}

func TestGenerateGivesUpAfterBoundedAttempts(t *testing.T) {
	completer := &scriptedCompleter{responses: []llm.Completion{{Text: "nope"}}}
	gen := NewLLMGenerator(completer)

	_, err := gen.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, parseAttempts, completer.calls)
}

func TestGeneratePropagatesAPIError(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("api down")}
	gen := NewLLMGenerator(completer)

	_, err := gen.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, completer.calls)
}
