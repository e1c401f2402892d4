// Package canned short-circuits small talk before retrieval: greetings,
// thanks, complaints, and profanity get a fixed reply without touching the
// embedding or completion providers. Matching is intentionally crude word
// lists, not part of the retrieval core.
package canned

import "strings"

// Category tags the kind of small talk detected in a message.
type Category int

const (
	CategoryNone Category = iota
	CategoryGreeting
	CategoryGratitude
	CategoryComplaint
	CategoryProfanity
)

// Lists holds the match words per category. Greeting entries match the
// whole trimmed message exactly; the other categories match as substrings.
type Lists struct {
	Greetings  []string
	Gratitude  []string
	Complaints []string
	Profanity  []string
}

// Responder classifies a message and maps categories to canned replies.
type Responder struct {
	lists   Lists
	replies map[Category]string
}

// New creates a Responder with the default Thai/English word lists.
func New() *Responder {
	return NewWithLists(Lists{
		Greetings:  []string{"สวัสดี", "สวัสดีครับ", "สวัสดีค่ะ", "หวัดดี", "hello", "hi", "hey"},
		Gratitude:  []string{"ขอบคุณ", "ขอบใจ", "thank", "thx"},
		Complaints: []string{"แย่มาก", "ห่วย", "ช้ามาก", "ไม่พอใจ", "terrible", "useless", "bad service"},
		Profanity:  []string{"เหี้ย", "สัส", "ควาย", "damn", "shit", "fuck"},
	})
}

// NewWithLists creates a Responder with custom word lists.
func NewWithLists(lists Lists) *Responder {
	return &Responder{
		lists: lists,
		replies: map[Category]string{
			CategoryGreeting:  "สวัสดีครับ มีคำถามเกี่ยวกับข้อมูลสินค้า สอบถามได้เลยครับ",
			CategoryGratitude: "ยินดีครับ หากมีคำถามเพิ่มเติมสอบถามได้เลยครับ",
			CategoryComplaint: "ขออภัยในความไม่สะดวกครับ ทางเราจะนำข้อเสนอแนะไปปรับปรุงครับ",
			CategoryProfanity: "ขออภัยครับ กรุณาใช้ถ้อยคำสุภาพนะครับ",
		},
	}
}

// Classify tags text with its small-talk category, or CategoryNone when it
// looks like a real question.
func (r *Responder) Classify(text string) Category {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return CategoryNone
	}
	for _, w := range r.lists.Greetings {
		if msg == strings.ToLower(w) {
			return CategoryGreeting
		}
	}
	for _, w := range r.lists.Profanity {
		if strings.Contains(msg, strings.ToLower(w)) {
			return CategoryProfanity
		}
	}
	for _, w := range r.lists.Gratitude {
		if strings.Contains(msg, strings.ToLower(w)) {
			return CategoryGratitude
		}
	}
	for _, w := range r.lists.Complaints {
		if strings.Contains(msg, strings.ToLower(w)) {
			return CategoryComplaint
		}
	}
	return CategoryNone
}

// Reply returns the canned reply for cat. ok is false for CategoryNone.
func (r *Responder) Reply(cat Category) (reply string, ok bool) {
	reply, ok = r.replies[cat]
	return reply, ok
}
