// Package composer builds a grounding prompt from retrieved passages and
// asks the completion provider for an answer. Provider failures never reach
// the caller; they degrade to fixed fallback messages because the webhook
// transport must always receive a well-formed reply.
package composer

import (
	"context"
	"log/slog"
	"strings"

	"docqa/internal/domain"
)

const systemPrompt = "คุณเป็นผู้ช่วยตอบคำถามเกี่ยวกับข้อมูลสินค้า " +
	"ตอบโดยใช้ข้อมูลจากเอกสารที่ให้มาเท่านั้น " +
	"หากข้อมูลที่ให้มาไม่เพียงพอต่อการตอบ ให้บอกว่าไม่พบข้อมูลในเอกสาร " +
	"อย่าเดาหรือแต่งข้อมูลขึ้นเอง"

// Fallback messages. The no-information reply is returned without calling
// the provider at all.
const (
	NoInformationReply = "ขออภัยครับ ไม่พบข้อมูลที่เกี่ยวข้องในเอกสารสินค้า"
	ApologyReply       = "ขออภัยครับ ระบบไม่สามารถประมวลผลคำถามได้ในขณะนี้ กรุณาลองใหม่อีกครั้ง"
)

// Composer answers a question from grounding context.
type Composer struct {
	completer domain.Completer
	log       *slog.Logger
}

// New creates a Composer.
func New(completer domain.Completer, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{completer: completer, log: log.With("component", "composer")}
}

// Answer builds the grounding prompt and returns the provider's reply.
// Empty context short-circuits to NoInformationReply; provider failure
// degrades to ApologyReply. Answer never returns an error.
func (c *Composer) Answer(ctx context.Context, question string, passages []string) string {
	if len(passages) == 0 {
		return NoInformationReply
	}

	var b strings.Builder
	b.WriteString("ข้อมูลจากเอกสารสินค้า:\n")
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(p)
	}
	b.WriteString("\n\nคำถาม: ")
	b.WriteString(question)

	reply, err := c.completer.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		c.log.Warn("completion failed, returning apology", "error", err)
		return ApologyReply
	}
	return strings.TrimSpace(reply)
}
