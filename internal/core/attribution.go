package core

// Display sentinels for references that can no longer be resolved.
const (
	UnknownTeamLabel   = "Unknown Team (Deleted)"
	UnknownMemberLabel = "Unknown Member (Deleted)"
	UnassignedLabel    = "Unassigned"
)

// ResolveTeamName returns the display name for an expenditure's team: the
// live team name when the team still exists, otherwise the name frozen at
// write time, otherwise a deleted-team sentinel.
func ResolveTeamName(teams []Team, e Expenditure) string {
	for _, t := range teams {
		if t.ID == e.TeamID {
			return t.Name
		}
	}
	if e.TeamNameHistorical != "" {
		return e.TeamNameHistorical
	}
	return UnknownTeamLabel
}

// ResolveMemberName returns the display name for an expenditure's member.
// An unassigned expenditure shows its historical member name when one was
// snapshotted (the member was deleted after the fact), else "Unassigned".
// An assigned expenditure whose member no longer exists falls back to the
// historical name, then to a deleted-member sentinel.
func ResolveMemberName(members []Member, e Expenditure) string {
	if !e.Assigned() {
		if e.MemberNameHistorical != "" {
			return e.MemberNameHistorical
		}
		return UnassignedLabel
	}
	for _, m := range members {
		if m.ID == e.MemberID {
			return m.Name
		}
	}
	if e.MemberNameHistorical != "" {
		return e.MemberNameHistorical
	}
	return UnknownMemberLabel
}
