package core

// Exchange is one completed turn of a conversation: the prompt that was sent
// and the response that came back.
type Exchange struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// History is the ordered record of exchanges preceding the current turn.
//
// A History is owned by a single run. Append returns a new value that shares
// no backing array with the receiver, so a History handed to a generator can
// never be mutated by later turns.
type History struct {
	exchanges []Exchange
}

// NewHistory builds a History from the given exchanges (copied).
func NewHistory(exchanges ...Exchange) History {
	h := History{}
	if len(exchanges) > 0 {
		h.exchanges = make([]Exchange, len(exchanges))
		copy(h.exchanges, exchanges)
	}
	return h
}

// Len returns the number of completed exchanges.
func (h History) Len() int { return len(h.exchanges) }

// Append returns a copy of the history with one more exchange at the end.
func (h History) Append(prompt, response string) History {
	next := make([]Exchange, len(h.exchanges), len(h.exchanges)+1)
	copy(next, h.exchanges)
	next = append(next, Exchange{Prompt: prompt, Response: response})
	return History{exchanges: next}
}

// Exchanges returns a defensive copy of the recorded exchanges.
func (h History) Exchanges() []Exchange {
	out := make([]Exchange, len(h.exchanges))
	copy(out, h.exchanges)
	return out
}

// At returns the exchange at index i.
func (h History) At(i int) (Exchange, bool) {
	if i < 0 || i >= len(h.exchanges) {
		return Exchange{}, false
	}
	return h.exchanges[i], true
}

// Contents renders the history as alternating user / assistant contents in
// conversation order, the shape model backends expect.
func (h History) Contents() []Content {
	contents := make([]Content, 0, len(h.exchanges)*2)
	for _, ex := range h.exchanges {
		contents = append(contents,
			NewTextContent(RoleUser, ex.Prompt),
			NewTextContent(RoleAssistant, ex.Response),
		)
	}
	return contents
}
