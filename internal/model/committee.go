package model

import "time"

// FEC committee designation codes.
const (
	DesignationPrincipal        = "P"
	DesignationAuthorized       = "A"
	DesignationJointFundraising = "J"
	DesignationLeadershipPAC    = "D"
	DesignationUnauthorized     = "U"
)

// CommitteeDesignation records the role a committee played for a
// candidate in one specific cycle. Designation is cycle-scoped: the
// same committee can be a principal campaign committee in one cycle and
// a leadership PAC in the next, so rows are never inferred from the
// committee's current state.
type CommitteeDesignation struct {
	ID            int
	CommitteeID   string
	CommitteeName string
	Cycle         int
	Designation   string
	CandidateID   string
	FetchedAt     time.Time
}

// IsPrincipal reports whether this designation marks the committee as
// the candidate's principal campaign committee.
func (d *CommitteeDesignation) IsPrincipal() bool {
	return d.Designation == DesignationPrincipal
}
