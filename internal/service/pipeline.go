// Package service wires the request path: canned-reply check, retrieval,
// then answer composition. It always produces a well-formed reply string.
package service

import (
	"context"
	"log/slog"

	"docqa/internal/canned"
)

// Retriever is the pipeline-facing subset of the retriever.
type Retriever interface {
	Search(ctx context.Context, query string) []string
}

// Composer is the pipeline-facing subset of the answer composer.
type Composer interface {
	Answer(ctx context.Context, question string, passages []string) string
}

// CannedResponder is the pipeline-facing subset of the canned responder.
type CannedResponder interface {
	Classify(text string) canned.Category
	Reply(cat canned.Category) (string, bool)
}

// Pipeline answers one message end to end.
type Pipeline struct {
	canned    CannedResponder
	retriever Retriever
	composer  Composer
	log       *slog.Logger
}

// New creates a Pipeline.
func New(responder CannedResponder, retriever Retriever, composer Composer, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{canned: responder, retriever: retriever, composer: composer, log: log.With("component", "pipeline")}
}

// Answer runs the full request path for one message. Canned matches bypass
// retrieval and the completion provider entirely.
func (p *Pipeline) Answer(ctx context.Context, text string) string {
	if cat := p.canned.Classify(text); cat != canned.CategoryNone {
		if reply, ok := p.canned.Reply(cat); ok {
			p.log.Info("canned reply", "category", int(cat))
			return reply
		}
	}
	passages := p.retriever.Search(ctx, text)
	p.log.Info("retrieved context", "passages", len(passages))
	return p.composer.Answer(ctx, text, passages)
}
