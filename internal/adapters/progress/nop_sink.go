package progress

import (
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewNopSink returns a sink that drops every event, used for JSON output
// and non-interactive runs
func NewNopSink() usecase.ProgressSink {
	return usecase.NopProgress{}
}
