package gossip

import "sort"

// Agent is a single participant in the gossip population.
//
// Known secrets and contacts only ever grow, and the token can only be
// revoked, never granted back. The engine recreates agents between runs
// instead of rolling state back.
type Agent struct {
	id        int
	known     map[int]struct{}
	hasToken  bool
	contacted map[int]struct{}
}

// NewAgent returns an agent that knows only its own secret and holds a token.
func NewAgent(id int) *Agent {
	return &Agent{
		id:        id,
		known:     map[int]struct{}{id: {}},
		hasToken:  true,
		contacted: make(map[int]struct{}),
	}
}

// ID returns the agent's identifier, which is also the id of its own secret.
func (a *Agent) ID() int { return a.id }

// Knows reports whether the agent knows the given secret.
func (a *Agent) Knows(secret int) bool {
	_, ok := a.known[secret]
	return ok
}

// KnownCount returns the number of secrets the agent knows.
func (a *Agent) KnownCount() int { return len(a.known) }

// KnownSecrets returns the known secrets in ascending order.
func (a *Agent) KnownSecrets() []int { return sortedKeys(a.known) }

// Learn adds a secret to the agent's knowledge without a call.
// Used to seed scenarios; the engine itself only spreads secrets through Exchange.
func (a *Agent) Learn(secret int) {
	a.known[secret] = struct{}{}
}

// HasToken reports whether the agent may still initiate SPI calls.
func (a *Agent) HasToken() bool { return a.hasToken }

// RevokeToken removes the agent's token. Revoking twice is a no-op.
func (a *Agent) RevokeToken() { a.hasToken = false }

// HasContacted reports whether the agent has already exchanged with peer
// under the call-once protocol.
func (a *Agent) HasContacted(peer int) bool {
	_, ok := a.contacted[peer]
	return ok
}

// Contacts returns the ids of recorded peers in ascending order.
func (a *Agent) Contacts() []int { return sortedKeys(a.contacted) }

func (a *Agent) recordContact(peer int) {
	a.contacted[peer] = struct{}{}
}

// Exchange merges the secrets of a and other so that both end up with the
// union. Guarding against a self-exchange is the caller's job.
func (a *Agent) Exchange(other *Agent) {
	for s := range other.known {
		a.known[s] = struct{}{}
	}
	for s := range a.known {
		other.known[s] = struct{}{}
	}
}

// knowsSomethingNewFor reports whether a knows at least one secret that
// other does not.
func (a *Agent) knowsSomethingNewFor(other *Agent) bool {
	if len(a.known) > len(other.known) {
		return true
	}
	for s := range a.known {
		if _, ok := other.known[s]; !ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
