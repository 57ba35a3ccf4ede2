package resolver

// Stage names a resolution strategy
type Stage string

const (
	StagePrimary  Stage = "primary"
	StageFallback Stage = "fallback"
	StageNone     Stage = "none"
)

// Reason explains a stage outcome
type Reason string

const (
	ReasonFound           Reason = "found"
	ReasonEmpty           Reason = "empty"
	ReasonUnavailable     Reason = "unavailable"
	ReasonRenderFailed    Reason = "render_failed"
	ReasonParseFailed     Reason = "parse_failed"
	ReasonTransportFailed Reason = "transport_failed"
	ReasonBadStatus       Reason = "bad_status"
	ReasonSkipped         Reason = "skipped"
)

// StageOutcome is the value returned by each stage in place of an error
type StageOutcome struct {
	Stage  Stage
	URLs   []string
	Reason Reason
	Err    error
}

// Found reports whether the stage produced at least one URL
func (o StageOutcome) Found() bool {
	return len(o.URLs) > 0
}

// Resolution is the result of resolving one query
type Resolution struct {
	Query    string
	Limit    int
	URLs     []string
	Source   Stage
	Primary  StageOutcome
	Fallback StageOutcome
}

// Empty reports whether no candidate was produced
func (r *Resolution) Empty() bool {
	return len(r.URLs) == 0
}

// Unreachable reports that the result is empty because upstream could not be
// asked, rather than because it had nothing for the query.
func (r *Resolution) Unreachable() bool {
	return r.Empty() && r.Fallback.Reason == ReasonTransportFailed
}

func skipped(stage Stage) StageOutcome {
	return StageOutcome{Stage: stage, Reason: ReasonSkipped}
}
