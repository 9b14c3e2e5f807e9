package class

// EvaluableTeams filters `teams` down to those the caller may evaluate:
// their own team, the reserved "Guests" pool and teams with no members are
// dropped. The filter is stable; input order is preserved and never re-sorted.
// An empty result is a user-facing "no eligible teams" condition, not an error.
func EvaluableTeams(teams []Team, myTeamID string) []Team {
	eligible := make([]Team, 0, len(teams))
	for _, t := range teams {
		if t.ID == myTeamID {
			continue
		}
		if t.IsGuests() {
			continue
		}
		if len(t.Students) == 0 {
			continue
		}
		eligible = append(eligible, t)
	}
	return eligible
}
