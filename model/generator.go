package model

import (
	"context"
	"errors"

	"github.com/hupe1980/mizan/core"
	"github.com/hupe1980/mizan/internal/prompt"
)

// ErrNoResponse is returned when a backend closes its stream without a final response.
var ErrNoResponse = errors.New("model returned no final response")

// Generator is the capability handed to the dialogue runner: given the
// conversation so far and the current prompt, produce the response text.
//
// Implementations returned by a Provider are safe for concurrent use; all
// per-conversation state travels in the history argument.
type Generator interface {
	Generate(ctx context.Context, history core.History, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, history core.History, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, history core.History, prompt string) (string, error) {
	return f(ctx, history, prompt)
}

// GeneratorOptions configure the Model to Generator adapter.
type GeneratorOptions struct {
	// Instructions are sent as system instructions on every call. They may
	// reference {{.language}}, filled from core.LanguageFromContext.
	Instructions string
	// Stream requests incremental output from the backend.
	Stream bool
}

// ModelGenerator adapts a streaming Model to the Generator contract.
type ModelGenerator struct {
	model Model
	opts  GeneratorOptions
}

// NewGenerator wraps m as a Generator.
func NewGenerator(m Model, optFns ...func(o *GeneratorOptions)) *ModelGenerator {
	opts := GeneratorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelGenerator{model: m, opts: opts}
}

// Info returns the wrapped model's metadata.
func (g *ModelGenerator) Info() Info { return g.model.Info() }

// Generate builds a Request from history + prompt and returns the text of the
// final (non-partial) response.
func (g *ModelGenerator) Generate(ctx context.Context, history core.History, userPrompt string) (string, error) {
	instructions, err := g.instructions(ctx)
	if err != nil {
		return "", err
	}

	contents := history.Contents()
	contents = append(contents, core.NewTextContent(core.RoleUser, userPrompt))

	respCh, errCh := g.model.Generate(ctx, Request{
		Instructions: instructions,
		Contents:     contents,
		Stream:       g.opts.Stream,
	})
	resp, err := Collect(ctx, respCh, errCh)
	if err != nil {
		return "", err
	}
	return resp.Content.Text(), nil
}

func (g *ModelGenerator) instructions(ctx context.Context) (string, error) {
	vars := map[string]any{}
	if language, ok := core.LanguageFromContext(ctx); ok {
		vars["language"] = language
	}
	return prompt.Render(g.opts.Instructions, vars)
}

// Collect drains both channels of a Model.Generate call and returns the last
// non-partial response. Partial chunks are discarded.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error) (Response, error) {
	var (
		final Response
		found bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !resp.Partial {
				final = resp
				found = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}
	if !found {
		return Response{}, ErrNoResponse
	}
	return final, nil
}
