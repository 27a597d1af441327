package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

var (
	queuedStyle    = color.New(color.FgYellow)
	completedStyle = color.New(color.FgGreen)
	abortedStyle   = color.New(color.FgRed)
)

func jobStatusStyle(status models.JobStatus) *color.Color {
	switch status {
	case models.JobStatusCompleted:
		return completedStyle
	case models.JobStatusAborted:
		return abortedStyle
	default:
		return queuedStyle
	}
}

// JobsRenderer renders computation jobs as a table
type JobsRenderer struct {
	out io.Writer
}

// NewJobsRenderer creates a new jobs renderer
func NewJobsRenderer(out io.Writer) *JobsRenderer {
	return &JobsRenderer{out: out}
}

// Render implements Renderer
func (r *JobsRenderer) Render(jobs []*models.ComputationJob) error {
	if len(jobs) == 0 {
		fmt.Fprintln(r.out, "No jobs found")
		return nil
	}

	t := newTable(r.out)
	t.AppendHeader(table.Row{"OFFSET", "CIRCUIT", "PURPOSE", "GOAL", "STATUS", "RESULT", "QUEUED"})
	for _, j := range jobs {
		goal := ""
		if j.Goal != nil {
			goal = j.Goal.String()
		}
		t.AppendRow(table.Row{
			j.Offset,
			fmt.Sprintf("%s@%d", j.Circuit, j.Version),
			string(j.Purpose),
			goal,
			jobStatusStyle(j.Status).Sprint(Title(string(j.Status))),
			formatJobResult(j),
			timestampStyle.Sprint(FormatTime(j.QueuedAt)),
		})
	}
	t.Render()
	return nil
}

func formatJobResult(j *models.ComputationJob) string {
	if j.Status == models.JobStatusAborted {
		return abortedStyle.Sprint(j.Reason)
	}
	if j.Output == nil {
		return ""
	}
	switch j.Output.Kind {
	case circuit.OutputPlaintextU64:
		return fmt.Sprintf("%d", j.Output.U64)
	case circuit.OutputPlaintextBool:
		return fmt.Sprintf("%t", j.Output.Bool)
	case circuit.OutputSealedU64Vector:
		return fmt.Sprintf("%d sealed value(s)", len(j.Output.Sealed))
	}
	return ""
}
