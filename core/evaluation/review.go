package evaluation

import (
	"sort"

	"github.com/nkashama/tathmini/core/class"
)

// ReviewGroup is all evaluations received by one team, as shown on the
// teacher's review screen.
type ReviewGroup struct {
	TeamName    string           `json:"team_name"`
	Evaluations []TeamEvaluation `json:"evaluations"`
}

// GroupForReview groups evaluations by evaluated-team name. Groups are
// ordered lexicographically by team name. Within a group, evaluations from
// the "Teachers" team come first, then those from "Guests", then everyone
// else; relative order within each bucket is preserved (a stable three-bucket
// sort, not a full comparator).
func GroupForReview(evals []TeamEvaluation) []ReviewGroup {
	byTeam := make(map[string][]TeamEvaluation)
	names := make([]string, 0)
	for _, e := range evals {
		if _, ok := byTeam[e.EvaluatedTeamName]; !ok {
			names = append(names, e.EvaluatedTeamName)
		}
		byTeam[e.EvaluatedTeamName] = append(byTeam[e.EvaluatedTeamName], e)
	}
	sort.Strings(names)

	groups := make([]ReviewGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, ReviewGroup{
			TeamName:    name,
			Evaluations: bucketByEvaluatorRole(byTeam[name]),
		})
	}
	return groups
}

func bucketByEvaluatorRole(evals []TeamEvaluation) []TeamEvaluation {
	teachers := make([]TeamEvaluation, 0, len(evals))
	guests := make([]TeamEvaluation, 0)
	others := make([]TeamEvaluation, 0)
	for _, e := range evals {
		switch e.EvaluatorTeamName {
		case class.TeachersTeamName:
			teachers = append(teachers, e)
		case class.GuestsTeamName:
			guests = append(guests, e)
		default:
			others = append(others, e)
		}
	}
	teachers = append(teachers, guests...)
	return append(teachers, others...)
}
