package app

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/econagent/internal/agent"
	"github.com/alanyoungcy/econagent/internal/domain"
)

// simulationReport is what simulate mode prints once it finishes.
type simulationReport struct {
	Requests     int
	Failed       int
	Earnings     domain.Earnings
	SubAgents    []domain.SubAgent
	Cycle        agent.CycleReport
	PayerBalance float64
	Treasury     float64
}

func writeReport(w io.Writer, r simulationReport) error {
	fmt.Fprintf(w, "\n==================== simulation ====================\n")
	fmt.Fprintf(w, "requests: %d (failed %d)   payer balance: $%.4f   treasury: $%.4f\n",
		r.Requests, r.Failed, r.PayerBalance, r.Treasury)
	fmt.Fprintf(w, "cycle: %d signals, %d opportunities, reinvestment=%s\n\n",
		r.Cycle.Signals, r.Cycle.Opportunities, r.Cycle.Reinvestment)

	services := make([]string, 0, len(r.Earnings.ByService))
	for s := range r.Earnings.ByService {
		services = append(services, s)
	}
	slices.Sort(services)

	ledgerTbl := tablewriter.NewWriter(w)
	ledgerTbl.Header("Service", "Earned")
	for _, s := range services {
		if err := ledgerTbl.Append(s, fmt.Sprintf("$%.4f", r.Earnings.ByService[s])); err != nil {
			return fmt.Errorf("report: ledger row: %w", err)
		}
	}
	summary := [][]string{
		{"total earned", fmt.Sprintf("$%.4f", r.Earnings.TotalEarned)},
		{"reinvested", fmt.Sprintf("$%.4f", r.Earnings.Reinvested)},
		{"available", fmt.Sprintf("$%.4f", r.Earnings.Available)},
	}
	for _, row := range summary {
		if err := ledgerTbl.Append(row[0], row[1]); err != nil {
			return fmt.Errorf("report: ledger row: %w", err)
		}
	}
	if err := ledgerTbl.Render(); err != nil {
		return fmt.Errorf("report: render ledger: %w", err)
	}

	fmt.Fprintf(w, "\nsub-agents: %d\n", len(r.SubAgents))
	if len(r.SubAgents) == 0 {
		return nil
	}
	subTbl := tablewriter.NewWriter(w)
	subTbl.Header("#", "ID", "Role", "Balance", "Wallet", "Funded")
	for i, sa := range r.SubAgents {
		if err := subTbl.Append(
			strconv.Itoa(i+1),
			shortID(sa.ID),
			sa.Role,
			fmt.Sprintf("$%.2f", sa.Balance),
			sa.Wallet,
			strconv.FormatBool(sa.FundingConfirmed),
		); err != nil {
			return fmt.Errorf("report: sub-agent row: %w", err)
		}
	}
	if err := subTbl.Render(); err != nil {
		return fmt.Errorf("report: render sub-agents: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
