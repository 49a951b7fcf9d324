package llm

import "context"

// FakeClient is a deterministic, in-memory Client used by tests in other
// packages that depend on the llm.Client capability contract without
// making network calls.
type FakeClient struct {
	// Responses are returned in order, one per Complete call. If exhausted,
	// the last response repeats.
	Responses []string
	// Err, if set, is returned instead of a response.
	Err error

	calls int
}

func (f *FakeClient) Complete(ctx context.Context, system, user, model string, maxTokens int) (string, error) {
	f.calls++
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	idx := f.calls - 1
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	return f.Responses[idx], nil
}

// Calls reports how many times Complete was invoked.
func (f *FakeClient) Calls() int { return f.calls }
