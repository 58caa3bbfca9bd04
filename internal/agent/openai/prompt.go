package openai

import (
	"fmt"
	"strings"

	"venture-backend/internal/agent"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const systemPrompt = "You are a business analysis engine. Respond with JSON only. No markdown. Never omit keys."

var kindInstructions = map[string]string{
	"market_analysis": `Produce a market analysis as a JSON object with keys:
"marketSize" (string), "growthTrends" (array of strings), "targetSegments"
(array of objects with "name" and "rationale"), "risks" (array of strings),
"summary" (string).`,
	"competitor_analysis": `Produce a competitor analysis as a JSON object with keys:
"competitors" (array of objects with "name", "positioning", "strengths",
"weaknesses"), "differentiators" (array of strings), "summary" (string).`,
	"marketing_strategy": `Produce a marketing strategy as a JSON object with keys:
"positioning" (string), "channels" (array of objects with "channel" and
"tactics"), "contentThemes" (array of strings), "budgetGuidance" (string),
"summary" (string).`,
	"website_brief": `Produce a website brief as a JSON object with keys:
"siteGoals" (array of strings), "pages" (array of objects with "name" and
"sections"), "toneOfVoice" (string), "callsToAction" (array of strings),
"summary" (string).`,
}

// BuildPrompt creates the chat messages for one analysis kind.
func BuildPrompt(kind string, profile agent.Profile) ([]Message, error) {
	instructions, ok := kindInstructions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown analysis kind %q", kind)
	}
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "developer", Content: instructions},
		{Role: "user", Content: buildUserPrompt(profile)},
	}, nil
}

func buildUserPrompt(profile agent.Profile) string {
	var b strings.Builder
	b.WriteString("Business profile:\n")
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(profile.Name))
	fmt.Fprintf(&b, "Industry: %s\n", strings.TrimSpace(profile.Industry))
	fmt.Fprintf(&b, "Stage: %s\n", strings.TrimSpace(profile.Stage))
	b.WriteString("Description:\n")
	b.WriteString(strings.TrimSpace(profile.Description))
	return b.String()
}
