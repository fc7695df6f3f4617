// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Benchtide/pkg/ux"
	"github.com/AleutianAI/Benchtide/services/harness"
)

// resultsModel is the bubbletea model for the stored-results browser.
// Enter selects a run for detail display after the program exits;
// q/esc quit without selecting.
type resultsModel struct {
	table    table.Model
	selected string
}

func (m resultsModel) Init() tea.Cmd { return nil }

func (m resultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			row := m.table.SelectedRow()
			if len(row) > 0 {
				m.selected = row[0]
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 4)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m resultsModel) View() string {
	help := ux.Styles.Muted.Render("↑/↓ navigate · enter details · q quit")
	return m.table.View() + "\n" + help + "\n"
}

func runResults(cmd *cobra.Command, _ []string) {
	st, err := openStore()
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to open result store: %v", err))
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Failed to close result store", "error", closeErr)
		}
	}()

	ctx := context.Background()
	names, err := st.List(ctx)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if len(names) == 0 {
		ux.Muted("No stored results yet. Run 'benchtide run <scenario.yaml>' first.")
		return
	}

	results, err := st.GetAll(ctx, names)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to load runs: %v", err))
		return
	}

	if resultsPlain || ux.GetPersonality().Level == ux.PersonalityMachine {
		for _, r := range results {
			fmt.Printf("%s\t%s\t%d\t%s\t%s\n",
				r.Name, r.Dataset, r.Samples, r.Duration, r.Timestamp.Format(time.RFC3339))
		}
		return
	}

	rows := make([]table.Row, len(results))
	for i, r := range results {
		rows[i] = table.Row{
			r.Name,
			r.Dataset,
			fmt.Sprintf("%d", r.Samples),
			r.Duration.Truncate(time.Millisecond).String(),
			r.Timestamp.Format("2006-01-02 15:04"),
		}
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Run", Width: 32},
			{Title: "Dataset", Width: 16},
			{Title: "Samples", Width: 8},
			{Title: "Duration", Width: 10},
			{Title: "When", Width: 17},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(minInt(len(rows)+1, 16)),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ux.ColorTealDeep).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(ux.ColorTealBright).
		Bold(true)
	t.SetStyles(styles)

	final, err := tea.NewProgram(resultsModel{table: t}).Run()
	if err != nil {
		ux.Error(fmt.Sprintf("Results browser failed: %v", err))
		return
	}

	model, ok := final.(resultsModel)
	if !ok || model.selected == "" {
		return
	}
	showResultDetail(ctx, st, model.selected)
}

// showResultDetail prints the aggregate table for one stored run.
func showResultDetail(ctx context.Context, st resultGetter, name string) {
	result, err := st.Get(ctx, name)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to load %q: %v", name, err))
		return
	}

	means := make(map[string]float64, len(result.Aggregates))
	for metric, agg := range result.Aggregates {
		means[metric] = agg.Mean
	}
	ux.Box(result.Name, ux.MetricTable(means))
	ux.Muted(fmt.Sprintf("%s · %d samples · %s",
		result.Dataset, result.Samples, result.Timestamp.Format(time.RFC3339)))
}

// resultGetter is the slice of the store the detail view needs.
type resultGetter interface {
	Get(ctx context.Context, name string) (*harness.Result, error)
}

func runDeleteResult(cmd *cobra.Command, args []string) {
	st, err := openStore()
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to open result store: %v", err))
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Failed to close result store", "error", closeErr)
		}
	}()

	if err := st.Delete(context.Background(), args[0]); err != nil {
		ux.Error(fmt.Sprintf("Failed to delete %q: %v", args[0], err))
		return
	}
	ux.Success(fmt.Sprintf("Deleted %q", args[0]))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
