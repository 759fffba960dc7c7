// Package anthropic backs agents with the Anthropic Messages API. The model
// id is taken from the implementation path, e.g. "anthropic:claude-sonnet-4-5".
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/invoker"
)

// Options configures the Anthropic invoker (temperature, max tokens, API key).
type Options struct {
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Invoker adapts a single agent to the Anthropic Messages API.
type Invoker struct {
	client *anthropic.Client
	agent  core.AgentSpec
	model  anthropic.Model
	opts   Options
}

// New creates an Anthropic invoker for the given agent using the official
// client.
func New(agent core.AgentSpec, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Invoker{
		client: &client,
		agent:  agent,
		model:  anthropic.Model(agent.Implementation.Target()),
		opts:   opts,
	}
}

// NewFromClient creates an Anthropic invoker from an existing client.
func NewFromClient(client *anthropic.Client, agent core.AgentSpec, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Invoker{
		client: client,
		agent:  agent,
		model:  anthropic.Model(agent.Implementation.Target()),
		opts:   opts,
	}
}

// Register binds the "anthropic" scheme on the registry.
func Register(r *invoker.Registry, optFns ...func(o *Options)) {
	r.RegisterScheme("anthropic", func(agent core.AgentSpec) (core.Invoker, error) {
		if agent.Implementation.Target() == "" {
			return nil, fmt.Errorf("anthropic: agent %q declares no model id", agent.Name)
		}

		return New(agent, optFns...), nil
	})
}

// Invoke implements core.Invoker.
func (i *Invoker) Invoke(ctx context.Context, inputs core.Values) (core.Values, error) {
	system, user, err := invoker.BuildPrompt(i.agent, inputs)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:       i.model,
		MaxTokens:   i.opts.MaxTokens,
		Temperature: anthropic.Float(i.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := i.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var reply string

	for _, block := range resp.Content {
		if block.Type == "text" {
			reply += block.AsText().Text
		}
	}

	return invoker.ParseOutputs(i.agent, reply)
}
