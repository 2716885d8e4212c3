package domain

// ClientSummary is the lightweight client projection used in dropdowns
// and embedded visit views.
type ClientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// PropertySummary is the lightweight property projection.
type PropertySummary struct {
	ID        string `json:"id"`
	Reference string `json:"reference,omitempty"`
	Address   string `json:"address"`
}

// AgentSummary identifies the agency user owning an event or visit.
type AgentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OperationStatus tracks a deal through its pipeline. The agenda only
// references operations; it never advances them.
type OperationStatus string

const (
	OpInterest    OperationStatus = "INTEREST"
	OpNegotiation OperationStatus = "NEGOTIATION"
	OpReserved    OperationStatus = "RESERVED"
	OpClosed      OperationStatus = "CLOSED"
	OpCancelled   OperationStatus = "CANCELLED"
)

// OperationSummary is the lightweight deal projection.
type OperationSummary struct {
	ID     string          `json:"id"`
	Status OperationStatus `json:"status"`
}
