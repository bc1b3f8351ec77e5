package learning

import (
	"math"
	"strconv"
	"strings"

	"github.com/clockwork-systems/timelearn/internal/observability"
	"github.com/clockwork-systems/timelearn/language"
)

// MembershipOracle answers whether a timed word belongs to the target
// language.
type MembershipOracle interface {
	Answer(word language.TimedWord) bool
	// Count is the number of queries forwarded to the underlying system.
	Count() int
}

// SULMembershipOracle answers membership queries by running the system under
// learning.
type SULMembershipOracle struct {
	sul     SUL
	metrics *observability.LearnerCollector
}

// NewSULMembershipOracle wraps the system under learning. The collector may
// be nil.
func NewSULMembershipOracle(sul SUL, metrics *observability.LearnerCollector) *SULMembershipOracle {
	return &SULMembershipOracle{sul: sul, metrics: metrics}
}

func (o *SULMembershipOracle) Answer(word language.TimedWord) bool {
	o.metrics.ObserveMembershipQuery("sul")
	return runWord(o.sul, word)
}

func (o *SULMembershipOracle) Count() int {
	return o.sul.Count()
}

func runWord(sul SUL, word language.TimedWord) bool {
	sul.Pre()
	defer sul.Post()
	durations := word.Durations()
	result := sul.StepDuration(durations[0])
	for i := 0; i < word.WordSize(); i++ {
		sul.StepAction(word.Word()[i])
		result = sul.StepDuration(durations[i+1])
	}
	return result
}

// MembershipOracleCache memoizes the answers of another membership oracle.
type MembershipOracleCache struct {
	oracle       MembershipOracle
	cache        map[string]bool
	countNoCache int
	hits         int
	metrics      *observability.LearnerCollector
}

// NewMembershipOracleCache wraps the given oracle with a cache. The
// collector may be nil.
func NewMembershipOracleCache(oracle MembershipOracle, metrics *observability.LearnerCollector) *MembershipOracleCache {
	return &MembershipOracleCache{
		oracle:  oracle,
		cache:   make(map[string]bool),
		metrics: metrics,
	}
}

func (c *MembershipOracleCache) Answer(word language.TimedWord) bool {
	c.countNoCache++
	key := cacheKey(word)
	if result, ok := c.cache[key]; ok {
		c.hits++
		c.metrics.ObserveMembershipQuery("cache")
		return result
	}
	result := c.oracle.Answer(word)
	c.cache[key] = result
	return result
}

func (c *MembershipOracleCache) Count() int {
	return c.oracle.Count()
}

// CountNoCache is the number of queries including cache hits.
func (c *MembershipOracleCache) CountNoCache() int {
	return c.countNoCache
}

// HitRatio is the fraction of queries answered from the cache.
func (c *MembershipOracleCache) HitRatio() float64 {
	if c.countNoCache == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.countNoCache)
}

// cacheKey serializes a timed word without rounding the durations.
func cacheKey(word language.TimedWord) string {
	var sb strings.Builder
	sb.WriteString(word.Word())
	for _, d := range word.Durations() {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatUint(math.Float64bits(d), 16))
	}
	return sb.String()
}
