// Package chat turns a model token stream into user-facing answer events,
// separating reasoning from the visible reply, and persists the finished
// exchange.
package chat

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// Assembler classifies streamed tokens as reasoning or visible answer
// text. Tokens carrying a reasoning marker flip the state and are consumed;
// every other token is forwarded downstream and accumulated under the state
// active when it arrived.
type Assembler struct {
	thinking bool
	think    strings.Builder
	content  strings.Builder
}

// Feed processes one token and reports whether it should be forwarded.
func (a *Assembler) Feed(token string) bool {
	switch {
	case strings.Contains(token, thinkOpen):
		a.thinking = true
		return false
	case strings.Contains(token, thinkClose):
		a.thinking = false
		return false
	}
	if a.thinking {
		a.think.WriteString(token)
	} else {
		a.content.WriteString(token)
	}
	return true
}

func (a *Assembler) Content() string { return a.content.String() }

func (a *Assembler) Think() string { return a.think.String() }
