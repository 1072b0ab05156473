package prompt

import "sort"

// DefaultMediaTokens is the flat token surcharge assumed per attachment when
// the estimator has no better number from the runtime.
const DefaultMediaTokens = 400

// Estimator counts tokens for trimming decisions. Conversation should use
// the model's chat template when one is available and fall back to summing
// per-message encodes plus a media surcharge otherwise.
type Estimator interface {
	Encode(text string) []int
	Decode(ids []int) string
	Conversation(msgs []Message) int
}

// EncodeEstimator adapts a bare encode/decode pair into an Estimator.
// Conversation sums per-message encodes and charges MediaTokens per
// attachment (DefaultMediaTokens when zero).
type EncodeEstimator struct {
	EncodeFn    func(string) []int
	DecodeFn    func([]int) string
	MediaTokens int
}

func (e EncodeEstimator) Encode(text string) []int { return e.EncodeFn(text) }
func (e EncodeEstimator) Decode(ids []int) string  { return e.DecodeFn(ids) }

func (e EncodeEstimator) Conversation(msgs []Message) int {
	perMedia := e.MediaTokens
	if perMedia <= 0 {
		perMedia = DefaultMediaTokens
	}
	total := 0
	for _, m := range msgs {
		total += len(e.EncodeFn(m.Text))
		total += perMedia * len(m.Media)
	}
	return total
}

// ShrinkToFit trims a conversation to the token budget. A budget <= 0
// disables trimming. overhead is the token cost of prompt content that
// lives outside the messages (a rendered tool preamble, for instance); it
// is charged against the budget in full and never trimmed. Trimmable
// (unprotected) messages are walked in original order; each is cut to the
// longest token prefix that brings the whole conversation under budget,
// and dropped entirely if even an empty text does not help. Protected
// messages are never shortened or removed; if they alone exceed the budget
// the call fails rather than truncating them.
func ShrinkToFit(msgs []Message, overhead, budget int, est Estimator) ([]Message, error) {
	if budget <= 0 {
		return msgs, nil
	}
	if overhead > 0 {
		est = paddedEstimator{Estimator: est, pad: overhead}
	}
	if est.Conversation(msgs) <= budget {
		return msgs, nil
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)

	i := 0
	for i < len(out) {
		if out[i].Protected() {
			i++
			continue
		}
		ids := est.Encode(out[i].Text)

		// Longest prefix of this message's tokens that fits the budget.
		// fits is monotone non-increasing in the prefix length, so binary
		// search for the first over-budget length and keep one less.
		fits := func(k int) bool {
			trial := out[i]
			trial.Text = est.Decode(ids[:k])
			return conversationWith(out, i, trial, est) <= budget
		}
		over := sort.Search(len(ids)+1, func(k int) bool { return !fits(k) })
		keep := over - 1

		if keep <= 0 {
			// Even empty it doesn't fit (or nothing remains): drop it.
			out = append(out[:i], out[i+1:]...)
			if keep == 0 && len(out) > 0 && est.Conversation(out) <= budget {
				return out, nil
			}
			continue
		}
		out[i].Text = est.Decode(ids[:keep])
		if est.Conversation(out) <= budget {
			return out, nil
		}
		i++
	}

	if actual := est.Conversation(out); actual > budget {
		return nil, ErrContextLimit(budget, actual)
	}
	return out, nil
}

// paddedEstimator adds a fixed token overhead to every conversation
// estimate, so out-of-band prompt content counts toward the budget.
type paddedEstimator struct {
	Estimator
	pad int
}

func (p paddedEstimator) Conversation(msgs []Message) int {
	return p.Estimator.Conversation(msgs) + p.pad
}

// conversationWith estimates the conversation with msgs[i] replaced.
func conversationWith(msgs []Message, i int, repl Message, est Estimator) int {
	old := msgs[i]
	msgs[i] = repl
	n := est.Conversation(msgs)
	msgs[i] = old
	return n
}
