package learning

import (
	"context"

	"github.com/clockwork-systems/timelearn/internal/logging"
	"github.com/clockwork-systems/timelearn/internal/observability"
	"github.com/clockwork-systems/timelearn/language"
)

// SymbolicMembershipOracle answers symbolic membership queries: it maps an
// elementary language to the set of timed conditions under which the word is
// accepted by the system under learning.
type SymbolicMembershipOracle struct {
	sul     SUL
	log     logging.Logger
	metrics *observability.LearnerCollector
}

// NewSymbolicMembershipOracle wraps the system under learning. The logger
// and collector may be nil.
func NewSymbolicMembershipOracle(sul SUL, log logging.Logger, metrics *observability.LearnerCollector) *SymbolicMembershipOracle {
	if log == nil {
		log = logging.Noop()
	}
	return &SymbolicMembershipOracle{sul: sul, log: log, metrics: metrics}
}

func (o *SymbolicMembershipOracle) membership(word language.TimedWord) bool {
	o.metrics.ObserveMembershipQuery("sul")
	return runWord(o.sul, word)
}

func (o *SymbolicMembershipOracle) included(elementary language.ElementaryLanguage) bool {
	return o.membership(elementary.Sample())
}

// Query returns the timed conditions under which a timed word of the given
// elementary language is accepted. A nil result means no timed word of the
// language is accepted.
func (o *SymbolicMembershipOracle) Query(elementary language.ElementaryLanguage) []language.TimedCondition {
	o.metrics.ObserveSymbolicQuery()

	simple := elementary.Enumerate()
	included := make([]language.ElementaryLanguage, 0, len(simple))
	for _, cell := range simple {
		if o.included(cell) {
			included = append(included, cell)
		}
	}
	o.log.Debug(context.Background(), "symbolic membership query",
		logging.String("language", elementary.String()),
		logging.Int("cells", len(simple)),
		logging.Int("included", len(included)),
	)

	if len(included) == 0 {
		return nil
	}
	if len(included) == len(simple) {
		return []language.TimedCondition{elementary.Condition()}
	}

	hull := included[0].Condition()
	for _, cell := range included[1:] {
		hull = hull.ConvexHull(cell.Condition())
	}
	if len(hull.Enumerate()) == len(included) {
		// The convex hull is the exact union.
		return []language.TimedCondition{hull}
	}

	reduced := reduce(included)
	result := make([]language.TimedCondition, len(reduced))
	for i, cell := range reduced {
		result[i] = cell.Condition()
	}
	return result
}

// reduce merges simple elementary languages whose convex hull is their exact
// union, shrinking the disjunction without changing its semantics.
func reduce(languages []language.ElementaryLanguage) []language.ElementaryLanguage {
	if len(languages) == 0 {
		return languages
	}
	type sized struct {
		lang language.ElementaryLanguage
		size int
	}
	items := make([]sized, len(languages))
	for i, l := range languages {
		items[i] = sized{lang: l, size: 1}
	}

	for i := 0; i < len(items); {
		merged := false
		for j := i + 1; j < len(items); j++ {
			if items[j].lang.Word() != items[i].lang.Word() {
				continue
			}
			hull := items[i].lang.Condition().ConvexHull(items[j].lang.Condition())
			if len(hull.Enumerate()) == items[i].size+items[j].size {
				items[i] = sized{
					lang: language.NewElementaryLanguage(items[i].lang.Word(), hull),
					size: items[i].size + items[j].size,
				}
				items = append(items[:j], items[j+1:]...)
				i = 0
				merged = true
				break
			}
		}
		if !merged {
			i++
		}
	}

	out := make([]language.ElementaryLanguage, len(items))
	for i, item := range items {
		out[i] = item.lang
	}
	return out
}
