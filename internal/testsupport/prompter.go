package testsupport

import (
	"context"
	"errors"
	"sync"

	"kgsa/internal/prompt"
)

// ErrScriptExhausted is returned when a ScriptedPrompter runs out of answers.
var ErrScriptExhausted = errors.New("scripted prompter: no responses left")

// AskedPrompt records one prompt issued to a ScriptedPrompter.
type AskedPrompt struct {
	Question string
	Options  []string
	Confirm  bool
}

// ScriptedPrompter replays canned responses in order.
type ScriptedPrompter struct {
	mu        sync.Mutex
	responses []prompt.Response
	asked     []AskedPrompt
}

// NewScriptedPrompter returns a prompter answering with responses in order.
func NewScriptedPrompter(responses ...prompt.Response) *ScriptedPrompter {
	return &ScriptedPrompter{responses: responses}
}

// Pick selects the option at index.
func Pick(index int) prompt.Response {
	return prompt.Response{Status: prompt.Selected, Index: index}
}

// Yes answers a Confirm affirmatively.
func Yes() prompt.Response { return prompt.Response{Status: prompt.Selected} }

// No declines a Confirm.
func No() prompt.Response { return prompt.Response{Status: prompt.Declined} }

// Quit cancels the run.
func Quit() prompt.Response { return prompt.Response{Status: prompt.Cancelled} }

// Choose implements prompt.Prompter.
func (p *ScriptedPrompter) Choose(_ context.Context, question string, options []string, _ bool) (prompt.Response, error) {
	resp, err := p.next(AskedPrompt{Question: question, Options: append([]string(nil), options...)})
	if err != nil {
		return prompt.Response{}, err
	}
	if resp.Status == prompt.Selected && resp.Index >= 0 && resp.Index < len(options) {
		resp.Value = options[resp.Index]
	}
	return resp, nil
}

// Confirm implements prompt.Prompter.
func (p *ScriptedPrompter) Confirm(_ context.Context, question string) (prompt.Response, error) {
	return p.next(AskedPrompt{Question: question, Confirm: true})
}

// Asked returns every prompt issued so far.
func (p *ScriptedPrompter) Asked() []AskedPrompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AskedPrompt(nil), p.asked...)
}

// Remaining reports how many scripted responses are unused.
func (p *ScriptedPrompter) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.responses)
}

func (p *ScriptedPrompter) next(asked AskedPrompt) (prompt.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, asked)
	if len(p.responses) == 0 {
		return prompt.Response{}, ErrScriptExhausted
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}
