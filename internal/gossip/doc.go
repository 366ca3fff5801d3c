// Package gossip simulates randomized rumor spreading among a fully
// connected population of agents. Every agent starts out knowing a single
// secret (its own id); each round one caller contacts one callee and both
// leave the call knowing the union of their secrets.
//
// Four contact policies are supported:
//
//   - ANY: any agent may call any other agent.
//   - CO (call-once): a caller may not call an agent it has already talked to.
//   - SPI (spider): only token holders may call; being called revokes the token.
//   - LNS (learn-new-secrets): a caller only calls agents that know something new.
//
// The Engine drives rounds until every agent knows every secret or the round
// cap is reached, and reports a Result per run. Randomness is always injected
// so runs are reproducible under a fixed seed.
//
// Usage:
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	eng, err := gossip.NewEngine(gossip.Config{NumAgents: 7, MaxRounds: 10000}, rng)
//	if err != nil {
//	    return err
//	}
//	res, err := eng.Run("LNS")
package gossip
