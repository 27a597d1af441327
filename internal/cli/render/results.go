package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// ResultRenderer renders the outcome of state-changing commands
type ResultRenderer struct {
	out io.Writer
}

// NewResultRenderer creates a new result renderer
func NewResultRenderer(out io.Writer) *ResultRenderer {
	return &ResultRenderer{out: out}
}

// GoalCreated renders a freshly created goal
func (r *ResultRenderer) GoalCreated(g *models.Goal) {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Created goal %q", g.Name)))
	fmt.Fprintf(r.out, "  Reference: %s\n", nameStyle.Sprint(g.Key.String()))
	fmt.Fprintf(r.out, "  Target: %d\n", g.TargetAmount)
	if g.Deadline != nil {
		fmt.Fprintf(r.out, "  Deadline: %s\n", FormatTime(*g.Deadline))
	}
	fmt.Fprintf(r.out, "  Vault: %s\n", g.Key.VaultAccount().Hex())
}

// MemberInvited renders the member list after an invite
func (r *ResultRenderer) MemberInvited(g *models.Goal) {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Goal %s now has %d/%d members", g.Key, len(g.Members), models.MaxMembers)))
}

// ContributionAdded renders a recorded contribution
func (r *ResultRenderer) ContributionAdded(c *models.Contribution) {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Recorded sealed contribution from %s to %s", ShortAddress(c.Contributor), c.Goal)))
}

// Aggregated renders the steps taken by an aggregation run
func (r *ResultRenderer) Aggregated(res *usecase.AggregateGoalResult) {
	if len(res.Steps) == 0 {
		fmt.Fprintln(r.out, "Nothing to aggregate")
	}
	for _, step := range res.Steps {
		folds := make([]string, len(step.Folds))
		for i, f := range step.Folds {
			folds[i] = ShortAddress(f)
		}
		line := fmt.Sprintf("Job %d folds %v", step.Job.Offset, folds)
		if step.Total != nil {
			line += fmt.Sprintf(" → total %d", *step.Total)
			fmt.Fprintln(r.out, FormatSuccess(line))
		} else {
			fmt.Fprintf(r.out, "  %s (queued)\n", line)
		}
	}
	if res.Goal != nil {
		fmt.Fprintf(r.out, "Aggregated total: %d of %d\n", res.Goal.CurrentTotal, res.Goal.TargetAmount)
	}
	if res.Remaining > 0 {
		fmt.Fprintf(r.out, "%d contribution(s) still to aggregate\n", res.Remaining)
	}
}

// Checked renders a threshold check
func (r *ResultRenderer) Checked(res *usecase.CheckGoalResult) {
	if res.Reached == nil {
		fmt.Fprintf(r.out, "Threshold check queued as job %d\n", res.Job.Offset)
		return
	}
	if *res.Reached {
		fmt.Fprintln(r.out, FormatSuccess("Goal target reached"))
	} else {
		fmt.Fprintln(r.out, FormatWarning("Goal target not reached yet"))
	}
}

// Revealed renders opened contribution amounts
func (r *ResultRenderer) Revealed(res *usecase.RevealContributionsResult) {
	if res.Amounts == nil {
		fmt.Fprintf(r.out, "Reveal queued as job %d\n", res.Job.Offset)
		return
	}
	t := newTable(r.out)
	t.AppendHeader(table.Row{"CONTRIBUTOR", "AMOUNT"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	var total uint64
	for _, a := range res.Amounts {
		t.AppendRow(table.Row{a.Contributor.Hex(), a.Amount})
		total += a.Amount
	}
	t.AppendFooter(table.Row{"TOTAL", total})
	t.Render()
}

// Finalized renders a finalization
func (r *ResultRenderer) Finalized(res *usecase.FinalizeGoalResult) {
	if res.GoalReached {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Goal %s finalized with its target reached", res.Goal.Key)))
	} else {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("Goal %s finalized at its deadline without reaching the target", res.Goal.Key)))
	}
}

// Transfer renders the transfer slot
func (r *ResultRenderer) Transfer(t *models.TransferRequest) {
	if t.Approved {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Transferred %d to %s", t.Amount, t.Recipient.Hex())))
		return
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Requested transfer of %d to %s", t.Amount, t.Recipient.Hex())))
}

// Vault renders a vault balance
func (r *ResultRenderer) Vault(v *usecase.VaultBalance) {
	fmt.Fprintf(r.out, "Vault %s of goal %s\n", v.Vault.Hex(), v.Goal)
	fmt.Fprintf(r.out, "  Balance: %d\n", v.Balance)
}
