package plangen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goalpal/goalpal/internal/llm"
)

const planSystemPrompt = `You are an expert educational curriculum designer specialising in personalised study plans for school-age learners. Generate a structured, age-appropriate study plan in JSON format.

The JSON must match this exact schema:
{
  "title": "string - short plan title",
  "overview": "string - 2-3 paragraph summary of the plan",
  "weeks": [
    {
      "week_number": 1,
      "title": "string",
      "description": "string - week focus",
      "tasks": [
        {
          "day_of_week": 0,
          "sequence_in_day": 1,
          "title": "string",
          "description": "string - specific instructions for the learner",
          "estimated_minutes": 30,
          "task_type": "reading|writing|math|practice|review|project|quiz|other",
          "xp_reward": 10,
          "is_optional": false
        }
      ]
    }
  ]
}

Rules:
- day_of_week: 0=Monday ... 6=Sunday
- Only schedule tasks on preferred study days
- estimated_minutes should fit within the daily study time
- xp_reward should be proportional to estimated_minutes (roughly 1 XP per minute, max 60)
- Make descriptions specific and actionable for the learner
- Output ONLY the JSON object, no markdown fences`

const (
	generateMaxTokens = 8192
	parseAttempts     = 3
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// LLMGenerator implements Generator on top of an Anthropic completion client.
type LLMGenerator struct {
	client llm.Completer
}

func NewLLMGenerator(client llm.Completer) *LLMGenerator {
	return &LLMGenerator{client: client}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*GeneratedPlan, error) {
	prompt := buildPrompt(req)

	var plan *GeneratedPlan
	promptTokens := 0
	completionTokens := 0

	// The model occasionally returns malformed JSON; re-ask a bounded number
	// of times before giving up.
	for attempt := 1; attempt <= parseAttempts; attempt++ {
		completion, err := g.client.Complete(ctx, llm.CompletionRequest{
			System:    planSystemPrompt,
			Prompt:    prompt,
			MaxTokens: generateMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("plan generation failed: %w", err)
		}
		promptTokens += completion.PromptTokens
		completionTokens += completion.CompletionTokens

		plan, err = parsePlan(completion.Text)
		if err == nil {
			break
		}
		slog.Warn("plan JSON parse error", "attempt", attempt, "error", err)
		if attempt == parseAttempts {
			return nil, fmt.Errorf("generator returned invalid JSON after %d attempts: %w", parseAttempts, err)
		}
	}

	plan.PromptTokens = promptTokens
	plan.CompletionTokens = completionTokens
	return plan, nil
}

func buildPrompt(req Request) string {
	dailyMinutes := req.DailyMinutes
	if dailyMinutes <= 0 {
		dailyMinutes = DefaultDailyMinutes
	}
	preferredDays := req.PreferredDays
	if len(preferredDays) == 0 {
		preferredDays = AllDays()
	}

	days := make([]int, len(preferredDays))
	copy(days, preferredDays)
	sort.Ints(days)
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(dayNames) {
			names = append(names, dayNames[d])
		}
	}

	totalDays := int(req.EndDate.Sub(req.StartDate).Hours()/24) + 1
	totalWeeks := (totalDays + 6) / 7
	if totalWeeks < 1 {
		totalWeeks = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Go-getter: %s (Grade %s)\n", req.GoGetter.Name, req.GoGetter.Grade)
	fmt.Fprintf(&b, "Subject: %s\n", req.Target.Subject)
	fmt.Fprintf(&b, "Learning goal: %s\n", req.Target.Title)
	fmt.Fprintf(&b, "Description: %s\n", req.Target.Description)
	fmt.Fprintf(&b, "Study period: %s to %s (%d week(s))\n",
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), totalWeeks)
	fmt.Fprintf(&b, "Daily study time available: %d minutes\n", dailyMinutes)
	fmt.Fprintf(&b, "Preferred study days: %s\n", strings.Join(names, ", "))
	if req.ExtraInstructions != "" {
		fmt.Fprintf(&b, "Extra instructions: %s\n", req.ExtraInstructions)
	}
	return b.String()
}

func parsePlan(text string) (*GeneratedPlan, error) {
	cleaned := stripFences(text)

	plan := &GeneratedPlan{}
	if err := json.Unmarshal([]byte(cleaned), plan); err != nil {
		return nil, err
	}
	if plan.Title == "" && len(plan.Weeks) == 0 {
		return nil, fmt.Errorf("generator response has no title and no weeks")
	}
	return plan, nil
}

// stripFences tolerates models wrapping JSON in markdown code fences despite
// instructions not to.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
