package inmemdb

import (
	"sync"

	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/evaluation"
	"github.com/nkashama/tathmini/core/user"
)

// DB is an in-memory store backing the repositories in tests and local runs
// without a database.
type DB struct {
	mutex sync.RWMutex

	users             map[string]*user.User
	verificationCodes map[string]*user.VerificationCode // by email

	classes  map[string]*class.Class
	teams    map[string]*class.Team
	students map[string]*class.Student

	teamOrder    []string // creation order, preserved by queries
	classOrder   []string
	studentOrder []string

	assignments map[string]*assignment.Assignment

	teamEvals   map[string]*evaluation.TeamEvaluation
	memberEvals map[string]*evaluation.MemberEvaluation
	evalOrder   []string
}

func Open() *DB {
	return &DB{
		users:             make(map[string]*user.User),
		verificationCodes: make(map[string]*user.VerificationCode),
		classes:           make(map[string]*class.Class),
		teams:             make(map[string]*class.Team),
		students:          make(map[string]*class.Student),
		assignments:       make(map[string]*assignment.Assignment),
		teamEvals:         make(map[string]*evaluation.TeamEvaluation),
		memberEvals:       make(map[string]*evaluation.MemberEvaluation),
	}
}
