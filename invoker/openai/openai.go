// Package openai backs agents with the OpenAI Chat Completions API. The
// model id is taken from the implementation path, e.g. "openai:gpt-4o-mini".
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/stackmesh/core"
	"github.com/hupe1980/stackmesh/invoker"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configures the OpenAI invoker (temperature, max tokens, API key).
type Options struct {
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Invoker adapts a single agent to the OpenAI Chat Completions API.
type Invoker struct {
	client *openai.Client
	agent  core.AgentSpec
	model  openai.ChatModel
	opts   Options
}

// New creates an OpenAI invoker for the given agent using the official client.
func New(agent core.AgentSpec, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)

	return &Invoker{
		client: &client,
		agent:  agent,
		model:  openai.ChatModel(agent.Implementation.Target()),
		opts:   opts,
	}
}

// NewFromClient creates an OpenAI invoker from an existing client.
func NewFromClient(client *openai.Client, agent core.AgentSpec, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Invoker{
		client: client,
		agent:  agent,
		model:  openai.ChatModel(agent.Implementation.Target()),
		opts:   opts,
	}
}

// Register binds the "openai" scheme on the registry.
func Register(r *invoker.Registry, optFns ...func(o *Options)) {
	r.RegisterScheme("openai", func(agent core.AgentSpec) (core.Invoker, error) {
		if agent.Implementation.Target() == "" {
			return nil, fmt.Errorf("openai: agent %q declares no model id", agent.Name)
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

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               i.model,
		Temperature:         openai.Float(i.opts.Temperature),
		MaxCompletionTokens: openai.Int(i.opts.MaxCompletionTokens),
	}

	resp, err := i.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	return invoker.ParseOutputs(i.agent, resp.Choices[0].Message.Content)
}
