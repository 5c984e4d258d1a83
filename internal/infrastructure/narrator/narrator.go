// Package narrator turns a simulation result into a short natural-
// language explanation, grounded on the teacher's
// OpenAICompletionExecutor (internal/application/executor/node_executors.go):
// same client construction and ChatCompletionRequest shape, adapted
// from a workflow node to a standalone collaborator.
//
// A Narrator is strictly downstream of the propagation engine. It
// reads a finished Result and produces prose; it never feeds back into
// Simulate, and the engine's output is identical whether or not a
// Narrator is configured. It is off by default (spec.md Non-goals:
// "natural-language generation is out of scope for the core engine";
// this package is the optional surface layered on top, never the
// reasoning itself).
package narrator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/qualphys/reasoner/internal/domain"
)

// Input is everything a Narrator needs to describe one simulation.
type Input struct {
	Perturbations []domain.Perturbation
	AffectedNodes []domain.AffectedNode
	Traces        map[string][]domain.TraceStep
	// Labels maps node id to its human-readable label, so the prompt
	// reads naturally instead of in dotted node-id form.
	Labels map[string]string
}

// Narrator produces a short natural-language summary of a simulation.
type Narrator interface {
	Narrate(ctx context.Context, in Input) (string, error)
}

// Noop never calls out to anything; it is the default when
// NARRATOR_ENABLED is false.
type Noop struct{}

func (Noop) Narrate(context.Context, Input) (string, error) {
	return "", nil
}

// OpenAI calls the chat completions API to narrate a simulation
// result. It is best-effort: callers should treat a narration failure
// as non-fatal to the surrounding request, since the deterministic
// simulation already succeeded without it.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (n *OpenAI) Narrate(ctx context.Context, in Input) (string, error) {
	prompt := buildPrompt(in)

	req := openai.ChatCompletionRequest{
		Model:               n.model,
		Temperature:         0.2,
		MaxCompletionTokens: 400,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You explain qualitative physiology simulation results to a clinician " +
					"in plain prose. State only what the data supports; never invent numbers, " +
					"never give treatment advice.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := n.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("narrator: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("narrator: openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Perturbations applied:\n")
	for _, p := range in.Perturbations {
		b.WriteString(fmt.Sprintf("- %s: %s\n", in.label(p.NodeID), p.Op))
	}

	b.WriteString("\nAffected nodes:\n")
	for _, a := range in.AffectedNodes {
		b.WriteString(fmt.Sprintf("- %s: %s (confidence %.2f, magnitude %s)\n",
			in.label(a.NodeID), a.Direction, a.Confidence, a.Magnitude))
	}

	if len(in.Traces) > 0 {
		b.WriteString("\nCausal paths:\n")
		for nodeID, steps := range in.Traces {
			for _, step := range steps {
				b.WriteString(fmt.Sprintf("- %s via: %s\n", in.label(nodeID), strings.Join(step.Steps, " -> ")))
			}
		}
	}

	b.WriteString("\nWrite a short paragraph explaining why these nodes changed.")
	return b.String()
}

func (in Input) label(nodeID string) string {
	if in.Labels != nil {
		if l, ok := in.Labels[nodeID]; ok && l != "" {
			return l
		}
	}
	return nodeID
}
