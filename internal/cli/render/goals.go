package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

var (
	activeStyle        = color.New(color.FgGreen)
	finalizedStyle     = color.New(color.FgYellow)
	addressStyle       = color.New(color.FgWhite)
	timestampStyle     = color.New(color.Faint)
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	nameStyle          = color.New(color.FgCyan, color.Bold)
)

func statusStyle(status models.GoalStatus) *color.Color {
	if status == models.GoalStatusFinalized {
		return finalizedStyle
	}
	return activeStyle
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingRight:     "   ",
		MiddleHorizontal: "─",
	}
	return t
}

// GoalsRenderer renders goal lists as a table
type GoalsRenderer struct {
	out io.Writer
}

// NewGoalsRenderer creates a new goals renderer
func NewGoalsRenderer(out io.Writer) *GoalsRenderer {
	return &GoalsRenderer{out: out}
}

// Render implements Renderer
func (r *GoalsRenderer) Render(result *usecase.ListGoalsResult) error {
	if len(result.Goals) == 0 {
		fmt.Fprintln(r.out, "No goals found")
		return nil
	}

	t := newTable(r.out)
	t.AppendHeader(table.Row{"GOAL", "NAME", "STATUS", "PROGRESS", "MEMBERS", "DEADLINE"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, g := range result.Goals {
		t.AppendRow(table.Row{
			addressStyle.Sprint(g.Key.String()),
			g.Name,
			statusStyle(g.Status).Sprint(Title(string(g.Status))),
			fmt.Sprintf("%d / %d", g.CurrentTotal, g.TargetAmount),
			len(g.Members),
			formatDeadline(g.Deadline),
		})
	}
	t.Render()

	statuses := make([]string, 0, len(result.Summary.ByStatus))
	for status, n := range result.Summary.ByStatus {
		statuses = append(statuses, fmt.Sprintf("%d %s", n, strings.ToLower(string(status))))
	}
	sort.Strings(statuses)
	fmt.Fprintf(r.out, "\n%d goal(s): %s\n", result.Summary.Total, strings.Join(statuses, ", "))
	return nil
}

func formatDeadline(d *time.Time) string {
	if d == nil {
		return timestampStyle.Sprint("none")
	}
	return FormatTime(*d)
}

// GoalRenderer renders the details of a single goal
type GoalRenderer struct {
	out io.Writer
	now func() time.Time
}

// NewGoalRenderer creates a new goal renderer
func NewGoalRenderer(out io.Writer) *GoalRenderer {
	return &GoalRenderer{out: out, now: time.Now}
}

// Render implements Renderer
func (r *GoalRenderer) Render(d *usecase.GoalDetails) error {
	g := d.Goal
	nameStyle.Fprintf(r.out, "Goal: %s\n", g.Name)
	fmt.Fprintln(r.out, strings.Repeat("=", 80))

	fmt.Fprintln(r.out, "\nBasic Information:")
	fmt.Fprintf(r.out, "  Reference: %s\n", g.Key)
	fmt.Fprintf(r.out, "  Owner: %s\n", g.Key.Owner.Hex())
	fmt.Fprintf(r.out, "  Status: %s\n", statusStyle(g.Status).Sprint(Title(string(g.Status))))
	fmt.Fprintf(r.out, "  Target: %d\n", g.TargetAmount)
	fmt.Fprintf(r.out, "  Aggregated Total: %d (%d of %d contributions)\n", g.CurrentTotal, len(g.Aggregated), len(d.Contributions))
	if g.Deadline != nil {
		note := ""
		if g.DeadlinePassed(r.now()) {
			note = finalizedStyle.Sprint(" (passed)")
		}
		fmt.Fprintf(r.out, "  Deadline: %s%s\n", FormatTime(*g.Deadline), note)
	}
	fmt.Fprintf(r.out, "  Created: %s\n", timestampStyle.Sprint(FormatTime(g.CreatedAt)))
	if g.FinalizedAt != nil {
		fmt.Fprintf(r.out, "  Finalized: %s\n", FormatTime(*g.FinalizedAt))
	}

	sectionHeaderStyle.Fprintln(r.out, "\nMembers:")
	for _, m := range g.Members {
		marks := []string{}
		if g.IsOwner(m) {
			marks = append(marks, "owner")
		}
		if g.IsAggregated(m) {
			marks = append(marks, "aggregated")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = timestampStyle.Sprintf(" [%s]", strings.Join(marks, ", "))
		}
		fmt.Fprintf(r.out, "  %s%s\n", m.Hex(), suffix)
	}

	if len(d.Contributions) > 0 {
		sectionHeaderStyle.Fprintln(r.out, "\nContributions:")
		for _, c := range d.Contributions {
			fmt.Fprintf(r.out, "  %s  %s  %s\n", c.Contributor.Hex(), timestampStyle.Sprint(FormatTime(c.Timestamp)), color.New(color.Faint).Sprint("(sealed)"))
		}
	}

	if d.Vault != nil {
		sectionHeaderStyle.Fprintln(r.out, "\nVault:")
		fmt.Fprintf(r.out, "  Account: %s\n", d.Vault.Vault.Hex())
		fmt.Fprintf(r.out, "  Balance: %d\n", d.Vault.Balance)
	}

	if d.Transfer != nil {
		sectionHeaderStyle.Fprintln(r.out, "\nTransfer Request:")
		fmt.Fprintf(r.out, "  Recipient: %s\n", d.Transfer.Recipient.Hex())
		fmt.Fprintf(r.out, "  Amount: %d\n", d.Transfer.Amount)
		if d.Transfer.Approved {
			fmt.Fprintf(r.out, "  Approved: %s\n", activeStyle.Sprint(FormatTime(*d.Transfer.ApprovedAt)))
		} else {
			fmt.Fprintf(r.out, "  Approved: %s\n", finalizedStyle.Sprint("pending"))
		}
	}

	if len(d.Jobs) > 0 {
		sectionHeaderStyle.Fprintln(r.out, "\nComputation Jobs:")
		if err := NewJobsRenderer(r.out).Render(d.Jobs); err != nil {
			return err
		}
	}
	return nil
}
