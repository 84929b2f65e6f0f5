// Package ai wraps the Gemini generative model behind a small interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("ai: empty model response")

// Options tune a single generation request.
type Options struct {
	// SystemInstruction sets the persona for the request.
	SystemInstruction string
	// JSON asks the model for an application/json response body.
	JSON bool
}

// Generator produces text from a prompt, optionally grounded on an image.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
	GenerateFromImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Gemini is a Generator backed by the Google GenAI SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	visionModel string
}

// NewGemini creates a Gemini client for the Gemini API.
func NewGemini(ctx context.Context, apiKey, model, visionModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if visionModel == "" {
		visionModel = model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{client: client, model: model, visionModel: visionModel}, nil
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return text(resp)
}

func (g *Gemini) GenerateFromImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI vision generate failed: %w", err)
	}
	return text(resp)
}

func text(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Disabled is a Generator used when no API key is configured.
type Disabled struct{}

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("ai: generative features are not configured")

func (Disabled) GenerateText(context.Context, string, Options) (string, error) {
	return "", ErrDisabled
}

func (Disabled) GenerateFromImage(context.Context, []byte, string, string) (string, error) {
	return "", ErrDisabled
}
