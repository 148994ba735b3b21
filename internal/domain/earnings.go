package domain

// Earnings is a point-in-time copy of the revenue ledger.
//
// Invariants: TotalEarned == sum(ByService) and
// Available == TotalEarned - Reinvested.
type Earnings struct {
	TotalEarned float64            `json:"total_earned"`
	ByService   map[string]float64 `json:"by_service"`
	Reinvested  float64            `json:"reinvested"`
	Available   float64            `json:"available"`
}
