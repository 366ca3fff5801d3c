package mcp

import "time"

// GossipRunInput defines the input for the gossip_run tool.
type GossipRunInput struct {
	Agents    int      `json:"agents,omitempty" jsonschema:"Population size (default 7)"`
	MaxRounds int      `json:"max_rounds,omitempty" jsonschema:"Round cap per run (default 10000)"`
	Trials    int      `json:"trials,omitempty" jsonschema:"Times each protocol runs (default 4)"`
	Protocols []string `json:"protocols,omitempty" jsonschema:"Protocols to run: ANY, CO, SPI, LNS (default all)"`
	Seed      uint64   `json:"seed,omitempty" jsonschema:"Random seed; 0 picks one from the clock"`
}

// GossipRunOutput defines the output for the gossip_run tool.
type GossipRunOutput struct {
	BatchID string       `json:"batch_id" jsonschema:"Identifier of the stored batch"`
	Seed    uint64       `json:"seed" jsonschema:"Seed actually used"`
	Runs    []RunSummary `json:"runs" jsonschema:"One entry per protocol run"`
	Count   int          `json:"count" jsonschema:"Number of runs"`
}

// RunSummary is the wire view of one run.
type RunSummary struct {
	Trial                   int     `json:"trial"`
	Protocol                string  `json:"protocol"`
	RoundsTaken             int     `json:"rounds_taken"`
	AverageContactsPerAgent float64 `json:"average_contacts_per_agent"`
	TotalMessagesKnown      int     `json:"total_messages_known"`
	Converged               bool    `json:"converged"`
}

// GossipProtocolsInput defines the (empty) input for the gossip_protocols tool.
type GossipProtocolsInput struct{}

// GossipProtocolsOutput defines the output for the gossip_protocols tool.
type GossipProtocolsOutput struct {
	Protocols []ProtocolInfo `json:"protocols"`
}

// ProtocolInfo describes one protocol.
type ProtocolInfo struct {
	Name        string `json:"name"`
	LongName    string `json:"long_name"`
	Description string `json:"description"`
}

// GossipHistoryInput defines the input for the gossip_history tool.
type GossipHistoryInput struct {
	BatchID string `json:"batch_id,omitempty" jsonschema:"Batch to show; empty lists all batches"`
}

// GossipHistoryOutput defines the output for the gossip_history tool.
type GossipHistoryOutput struct {
	Batches []BatchItem  `json:"batches,omitempty"`
	Runs    []RunSummary `json:"runs,omitempty"`
	Count   int          `json:"count"`
}

// BatchItem is the wire view of a stored batch.
type BatchItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
}
