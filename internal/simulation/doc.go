// Package simulation provides a property-test harness for the gossip engine.
//
// A Scenario describes a population, a protocol and how many consecutive
// runs to perform on one engine. The Runner executes it with a recording
// tracer that snapshots every agent after every round, so assertions can
// check invariants across the whole history: knowledge never shrinks, tokens
// are never regained, call-once pairs never repeat, and every run starts
// from the canonical initial state.
//
// Usage:
//
//	func TestSpiderTokens(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:     "spider-tokens",
//	        Agents:   6,
//	        Protocol: gossip.ProtocolSpider,
//	        Seed:     7,
//	        Runs:     3,
//	    })
//	    simulation.AssertTokensNeverRegained(t, result)
//	}
package simulation
