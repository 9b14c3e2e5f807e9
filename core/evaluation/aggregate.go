package evaluation

import "math"

// Summary holds the aggregate figures shown on a report. Averages are nil,
// not zero, when there is nothing to average; absence is meaningful.
type Summary struct {
	TeamCount      int      `json:"team_count"`
	MemberCount    int      `json:"member_count"`
	AvgTeamScore   *float64 `json:"avg_team_score,omitempty"`
	AvgMemberScore *float64 `json:"avg_member_score,omitempty"`
}

// Aggregate computes counts and arithmetic-mean scores over the evaluations a
// student received. Means are rounded to one decimal place. A zero Score on a
// record folds into the sum as 0.
func Aggregate(teamEvals []TeamEvaluation, memberEvals []MemberEvaluation) Summary {
	s := Summary{
		TeamCount:   len(teamEvals),
		MemberCount: len(memberEvals),
	}
	if s.TeamCount > 0 {
		var sum int
		for _, e := range teamEvals {
			sum += e.TeamScore
		}
		s.AvgTeamScore = round1(float64(sum) / float64(s.TeamCount))
	}
	if s.MemberCount > 0 {
		var sum int
		for _, e := range memberEvals {
			sum += e.Score
		}
		s.AvgMemberScore = round1(float64(sum) / float64(s.MemberCount))
	}
	return s
}

func round1(f float64) *float64 {
	r := math.Round(f*10) / 10
	return &r
}
