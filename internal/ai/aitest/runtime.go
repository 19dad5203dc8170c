// Package aitest provides a scripted ai.Runtime for tests.
package aitest

import (
	"context"

	"github.com/KaramelBytes/autolysis/internal/ai"
)

// Reply is one scripted answer. Err takes precedence over Text.
type Reply struct {
	Text string
	Err  error
}

// Runtime answers requests from Replies in order, then repeats the last one.
// Respond, when set, is used instead of Replies.
type Runtime struct {
	Replies []Reply
	Respond func(req ai.GenerateRequest) Reply
	Calls   []ai.GenerateRequest
}

// Text returns a Runtime that always answers s.
func Text(s string) *Runtime { return &Runtime{Replies: []Reply{{Text: s}}} }

// Fail returns a Runtime that always fails with err.
func Fail(err error) *Runtime { return &Runtime{Replies: []Reply{{Err: err}}} }

func (r *Runtime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.Calls = append(r.Calls, req)
	var rep Reply
	switch {
	case r.Respond != nil:
		rep = r.Respond(req)
	case len(r.Replies) > 0:
		i := len(r.Calls) - 1
		if i >= len(r.Replies) {
			i = len(r.Replies) - 1
		}
		rep = r.Replies[i]
	}
	if rep.Err != nil {
		return nil, rep.Err
	}
	return &ai.GenerateResponse{
		Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: rep.Text}}},
	}, nil
}
