package simulation

import (
	"reflect"
	"testing"
)

// AssertRoundCapRespected asserts that no run took more than MaxRounds.
func AssertRoundCapRespected(t *testing.T, result SimulationResult, maxRounds int) {
	t.Helper()
	for _, run := range result.Runs {
		if run.Result.RoundsTaken > maxRounds {
			t.Errorf("AssertRoundCapRespected: run %d: %d rounds > cap %d", run.Index, run.Result.RoundsTaken, maxRounds)
		}
		if len(run.Rounds) != run.Result.RoundsTaken {
			t.Errorf("AssertRoundCapRespected: run %d: traced %d rounds, result reports %d", run.Index, len(run.Rounds), run.Result.RoundsTaken)
		}
	}
}

// AssertConvergedWhenEarly asserts that a run stopping before the cap left
// every agent knowing all n secrets.
func AssertConvergedWhenEarly(t *testing.T, result SimulationResult, n, maxRounds int) {
	t.Helper()
	for _, run := range result.Runs {
		if run.Result.RoundsTaken >= maxRounds {
			continue
		}
		if !run.Result.Converged {
			t.Errorf("AssertConvergedWhenEarly: run %d stopped at round %d without converging", run.Index, run.Result.RoundsTaken)
		}
		if run.Result.TotalMessagesKnown != n*n {
			t.Errorf("AssertConvergedWhenEarly: run %d: total messages known %d, want %d", run.Index, run.Result.TotalMessagesKnown, n*n)
		}
		for id, c := range run.Result.FinalCounts {
			if c != n {
				t.Errorf("AssertConvergedWhenEarly: run %d: agent %d knows %d of %d secrets", run.Index, id, c, n)
			}
		}
	}
}

// AssertKnowledgeMonotonic asserts that no agent's known-secret count ever
// decreases and every agent always knows its own secret.
func AssertKnowledgeMonotonic(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, run := range result.Runs {
		prev := make(map[int]int)
		for _, snap := range run.Rounds {
			for _, a := range snap.Agents {
				if len(a.Known) < prev[a.ID] {
					t.Errorf("AssertKnowledgeMonotonic: run %d round %d: agent %d dropped from %d to %d secrets",
						run.Index, snap.Event.Round, a.ID, prev[a.ID], len(a.Known))
				}
				prev[a.ID] = len(a.Known)
				if !containsInt(a.Known, a.ID) {
					t.Errorf("AssertKnowledgeMonotonic: run %d round %d: agent %d forgot its own secret", run.Index, snap.Event.Round, a.ID)
				}
			}
		}
	}
}

// AssertExchangeSymmetric asserts that after every exchange both parties
// know exactly the same secrets.
func AssertExchangeSymmetric(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, run := range result.Runs {
		for _, snap := range run.Rounds {
			if !snap.Event.Exchanged {
				continue
			}
			caller := snap.Agents[snap.Event.Caller]
			callee := snap.Agents[snap.Event.Callee]
			if !reflect.DeepEqual(caller.Known, callee.Known) {
				t.Errorf("AssertExchangeSymmetric: run %d round %d: %d knows %v, %d knows %v",
					run.Index, snap.Event.Round, caller.ID, caller.Known, callee.ID, callee.Known)
			}
		}
	}
}

// AssertTokensNeverRegained asserts that a revoked token stays revoked for
// the rest of the run.
func AssertTokensNeverRegained(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, run := range result.Runs {
		revoked := make(map[int]bool)
		for _, snap := range run.Rounds {
			for _, a := range snap.Agents {
				if revoked[a.ID] && a.HasToken {
					t.Errorf("AssertTokensNeverRegained: run %d round %d: agent %d regained its token", run.Index, snap.Event.Round, a.ID)
				}
				if !a.HasToken {
					revoked[a.ID] = true
				}
			}
		}
	}
}

// AssertPairsNeverRepeat asserts that no unordered pair exchanged twice in
// a run and that contact records are mutual.
func AssertPairsNeverRepeat(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, run := range result.Runs {
		seen := make(map[[2]int]bool)
		exchanges := 0
		for _, snap := range run.Rounds {
			if !snap.Event.Exchanged {
				continue
			}
			exchanges++
			key := PairKey(snap.Event.Caller, snap.Event.Callee)
			if seen[key] {
				t.Errorf("AssertPairsNeverRepeat: run %d round %d: pair %v exchanged again", run.Index, snap.Event.Round, key)
			}
			seen[key] = true
		}
		if exchanges != run.Result.TotalContacts {
			t.Errorf("AssertPairsNeverRepeat: run %d: %d exchanges traced, %d contacts reported", run.Index, exchanges, run.Result.TotalContacts)
		}

		if len(run.Rounds) == 0 {
			continue
		}
		last := run.Rounds[len(run.Rounds)-1].Agents
		for _, a := range last {
			for _, peer := range a.Contacts {
				if !containsInt(last[peer].Contacts, a.ID) {
					t.Errorf("AssertPairsNeverRepeat: run %d: %d recorded %d but not vice versa", run.Index, a.ID, peer)
				}
			}
		}
	}
}

// AssertStartsCanonical asserts that every run began, and every reset ended,
// with each agent knowing only its own secret, holding a token and having
// no contacts.
func AssertStartsCanonical(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, run := range result.Runs {
		for label, states := range map[string][]AgentState{"start": run.Start, "after reset": run.After} {
			for _, a := range states {
				if !reflect.DeepEqual(a.Known, []int{a.ID}) || !a.HasToken || len(a.Contacts) != 0 {
					t.Errorf("AssertStartsCanonical: run %d %s: agent %d not canonical: %+v", run.Index, label, a.ID, a)
				}
			}
		}
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
