package domain

import "time"

// ItemAction enumerates what happened to one harvested list item.
type ItemAction string

const (
	ActionCreated ItemAction = "created"
	ActionUpdated ItemAction = "updated"
	ActionSkipped ItemAction = "skipped"
	ActionFailed  ItemAction = "failed"
)

// ItemOutcome is the per-item result collected inside a batch.
type ItemOutcome struct {
	Number string
	Action ItemAction
	Err    error
}

// BatchReport aggregates the outcomes of one list request.
type BatchReport struct {
	Index    int
	IDs      []string
	Outcomes []ItemOutcome
	Err      error
}

// Count returns how many outcomes carry the given action.
func (b BatchReport) Count(action ItemAction) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Action == action {
			n++
		}
	}
	return n
}

// RegionReport summarizes one region/category pass.
type RegionReport struct {
	Region      string
	Category    string
	Discovered  int
	Batches     []BatchReport
	Err         error
	Created     int
	Updated     int
	Skipped     int
	Failed      int
	FailedBatch int
}

// HarvestReport is the outcome of a full harvest run.
type HarvestReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Regions    []RegionReport
	Created    int
	Updated    int
	Skipped    int
	Failed     int
}

// GeocodeReport counts geocoding outcomes for one pass.
type GeocodeReport struct {
	Succeeded int
	Skipped   int
	NotFound  int
	Failed    int
}

// StateReport counts state backfill outcomes.
type StateReport struct {
	Updated  int
	Unmapped int
	Failed   int
}
