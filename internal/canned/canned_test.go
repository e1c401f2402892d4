package canned

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	r := New()
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"thai greeting exact", "สวัสดี", CategoryGreeting},
		{"thai greeting trimmed", "  สวัสดีครับ  ", CategoryGreeting},
		{"english greeting", "Hello", CategoryGreeting},
		{"greeting inside question is not greeting", "สวัสดี อยากทราบสเปคของ EC-575", CategoryNone},
		{"gratitude substring", "โอเค ขอบคุณมากครับ", CategoryGratitude},
		{"complaint substring", "ตอบช้ามากเลย", CategoryComplaint},
		{"profanity substring", "ระบบเหี้ยอะไรเนี่ย", CategoryProfanity},
		{"real question", "ช่วงการวัดของ FLAG-2100 คือเท่าไร", CategoryNone},
		{"empty", "   ", CategoryNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Classify(tc.text))
		})
	}
}

func TestReply(t *testing.T) {
	r := New()
	reply, ok := r.Reply(CategoryGreeting)
	assert.True(t, ok)
	assert.NotEmpty(t, reply)

	_, ok = r.Reply(CategoryNone)
	assert.False(t, ok)
}
