package domain

// Connection is an end customer's grid connection point. Each of the three
// reference slots is owned by a different market role and only mutated by that
// role's reconciliation path.
type Connection struct {
	EntityAddress string `json:"entity_address"`
	// CongestionPoint holds the entity address of the owning congestion
	// point, empty when the connection is not attached to one.
	CongestionPoint string `json:"congestion_point,omitempty"`
	// AggregatorDomain is the domain of the aggregator that claimed this
	// connection as customer, empty when unclaimed.
	AggregatorDomain string `json:"aggregator_domain,omitempty"`
	// BRPDomain is the domain of the balance responsible party that claimed
	// this connection, empty when unclaimed.
	BRPDomain string `json:"brp_domain,omitempty"`
}

// Orphaned reports whether every reference slot is empty. An orphaned
// connection is deleted lazily, at the moment a slot-clearing event leaves it
// in this state.
func (c Connection) Orphaned() bool {
	return c.CongestionPoint == "" && c.AggregatorDomain == "" && c.BRPDomain == ""
}

// CongestionPoint is a grid location owned by exactly one DSO for as long as
// it exists. Attached connections are reachable through the topology store.
type CongestionPoint struct {
	EntityAddress string `json:"entity_address"`
	DSODomain     string `json:"dso_domain"`
}

// UpdateEntity discriminates what a topology update asserts facts about.
type UpdateEntity string

const (
	EntityCongestionPoint UpdateEntity = "CONGESTION_POINT"
	EntityAggregator      UpdateEntity = "AGGREGATOR"
	EntityBRP             UpdateEntity = "BRP"
)

// ConnectionAssertion is one connection fact inside a topology update.
// IsCustomer carries the sender's claim on the connection; its meaning differs
// per role (see the reconciliation engine).
type ConnectionAssertion struct {
	EntityAddress string `json:"entity_address"`
	IsCustomer    bool   `json:"is_customer"`
}

// TopologyUpdate is one inbound, already-parsed common reference update.
type TopologyUpdate struct {
	SenderDomain  string                `json:"sender_domain"`
	Entity        UpdateEntity          `json:"entity"`
	EntityAddress string                `json:"entity_address"`
	Connections   []ConnectionAssertion `json:"connections"`
}

// Rejection is one reason an update was refused. A non-empty rejection list
// means the update had no persistent effect.
type Rejection struct {
	Message string `json:"message"`
}

// RejectionMessages flattens rejections for logging.
func RejectionMessages(rejections []Rejection) []string {
	msgs := make([]string, 0, len(rejections))
	for _, r := range rejections {
		msgs = append(msgs, r.Message)
	}
	return msgs
}
