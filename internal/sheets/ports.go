package sheets

import "context"

// PlanRow is one resolved plan line ready for export: an entity's effective
// amount for a month, tagged with the layer that produced it.
type PlanRow struct {
	Month       string
	EntityKind  string
	EntityID    string
	Name        string
	AmountCents int64
	Source      string
	Revision    int64
}

// Ports for outbound adapters.
type (
	// PlanWriter exports resolved plan rows to an external sheet.
	PlanWriter interface {
		WritePlanRows(ctx context.Context, rows []PlanRow) error
	}
)
