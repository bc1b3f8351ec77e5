package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/clockwork-systems/timelearn/automata"
	"github.com/clockwork-systems/timelearn/internal/logging"
	"github.com/clockwork-systems/timelearn/internal/observability"
	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/learning"
	"github.com/clockwork-systems/timelearn/zones"
)

func main() {
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (disabled when empty)")
	dotPath := flag.String("dot", "", "write the simplified automaton as Graphviz to this path")
	strong := flag.Bool("strong", true, "run the zone-based simplification passes")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	collector, err := observability.NewLearnerCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	relaxCollector, err := observability.NewRelaxationCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise relaxation collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	tracer := otel.Tracer("timelearn")

	ta := exampleAutomaton()
	ta.Log = log
	if err := ta.Validate(); err != nil {
		log.Error(ctx, "invalid automaton", logging.String("error", err.Error()))
		os.Exit(1)
	}
	collector.SetAutomatonSize(len(ta.States), transitionCount(ta))

	if *strong {
		spanCtx, span := tracer.Start(ctx, "simplify")
		ta.SimplifyWithZones()
		ta.SimplifyStrong()
		span.End()
		log.Info(spanCtx, "simplified automaton",
			logging.Int("states", len(ta.States)),
			logging.Int("transitions", transitionCount(ta)),
		)
		collector.SetAutomatonSize(len(ta.States), transitionCount(ta))
	}

	_, zaSpan := tracer.Start(ctx, "zone-automaton")
	za := automata.BuildZoneAutomaton(ta)
	zaSpan.End()
	collector.SetZoneStates(len(za.States))
	log.Info(ctx, "built zone automaton", logging.Int("states", len(za.States)))

	if word, ok := za.Sample(); ok {
		log.Info(ctx, "sampled accepted word", logging.String("word", word.String()))
	} else {
		log.Info(ctx, "the recognized language is empty")
	}

	runRelaxationPass(ctx, tracer, log, collector, relaxCollector)

	runSymbolicQueries(ctx, tracer, log, collector, relaxCollector, ta)

	if *dotPath != "" {
		if err := os.WriteFile(*dotPath, []byte(ta.Dot()), 0o644); err != nil {
			log.Error(ctx, "failed to write dot file", logging.String("path", *dotPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "wrote Graphviz output", logging.String("path", *dotPath))
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// exampleAutomaton recognizes words where every 'b' comes within one time
// unit of the preceding 'a'.
func exampleAutomaton() *automata.TimedAutomaton {
	s0 := automata.NewTAState(true)
	s1 := automata.NewTAState(false)
	s0.AddTransition('a', automata.TATransition{
		Resets: []automata.ClockReset{{Clock: 0, Value: automata.ConstantReset(0)}},
		Target: s1,
	})
	s1.AddTransition('b', automata.TATransition{
		Guard:  []zones.Constraint{{Clock: 0, Rel: zones.Le, Constant: 1}},
		Target: s0,
	})
	s1.AddTransition('a', automata.TATransition{
		Resets: []automata.ClockReset{{Clock: 0, Value: automata.ConstantReset(0)}},
		Target: s1,
	})
	states := []*automata.TAState{s0, s1}
	return &automata.TimedAutomaton{
		States:         states,
		Initial:        []*automata.TAState{s0},
		MaxConstraints: automata.MakeMaxConstants(states),
	}
}

// runRelaxationPass demonstrates the imprecise-clock repair on a small
// hypothesis: the observation behind the jump pins only the second
// accumulated duration, so the first stays imprecise and the tight guard
// on it gets widened.
func runRelaxationPass(ctx context.Context, tracer trace.Tracer, log logging.Logger,
	collector *observability.LearnerCollector, relax *observability.RelaxationCollector) {
	ctx, span := tracer.Start(ctx, "relaxation-pass")
	defer span.End()

	sink := automata.NewTAState(true)
	hypothesis := automata.NewTAState(false)
	hypothesis.AddTransition('a', automata.TATransition{
		Guard: []zones.Constraint{
			{Clock: 0, Rel: zones.Gt, Constant: 1},
			{Clock: 0, Rel: zones.Le, Constant: 2},
			{Clock: 1, Rel: zones.Gt, Constant: 0},
			{Clock: 1, Rel: zones.Lt, Constant: 1},
		},
		Resets: []automata.ClockReset{
			{Clock: 0, Value: automata.ConstantReset(0)},
			{Clock: 1, Value: automata.ConstantReset(0)},
		},
		Target: sink,
	})

	observed := language.RegionalFromTimedWord(language.NewTimedWord("a", []float64{1.2, 0.7}))
	renaming := language.RenamingRelation{{Source: 1, Target: 1}}

	handler := learning.NewImpreciseClockHandler(log, collector, relax)
	handler.Push(hypothesis, renaming, observed, observed)
	handler.Run()

	log.Info(ctx, "relaxation pass finished",
		logging.Int("transitions", len(hypothesis.Next['a'])),
	)
	for _, t := range hypothesis.Next['a'] {
		log.Info(ctx, "hypothesis transition", logging.String("guard", zones.GuardString(t.Guard)))
	}
}

// runSymbolicQueries exercises the symbolic oracle against the automaton
// itself, logging the conditions under which "ab" is accepted.
func runSymbolicQueries(ctx context.Context, tracer trace.Tracer, log logging.Logger,
	collector *observability.LearnerCollector, relax *observability.RelaxationCollector,
	ta *automata.TimedAutomaton) {
	ctx, span := tracer.Start(ctx, "symbolic-query")
	defer span.End()

	runner := learning.NewTimedAutomatonRunner(ta)
	oracle := learning.NewSymbolicMembershipOracle(runner, log, collector)

	cond := language.TopCondition(3)
	cond.RestrictLowerBound(0, 2, zones.Bound{Value: 0, NonStrict: true}, false)
	cond.RestrictUpperBound(0, 2, zones.Bound{Value: 2, NonStrict: true}, false)
	cond.RestrictLowerBound(1, 2, zones.Bound{Value: 0, NonStrict: true}, false)
	cond.RestrictUpperBound(1, 2, zones.Bound{Value: 2, NonStrict: true}, false)
	cond.RestrictLowerBound(2, 2, zones.Bound{Value: 0, NonStrict: true}, false)
	cond.RestrictUpperBound(2, 2, zones.Bound{Value: 0, NonStrict: true}, false)
	cond.Canonize()

	result := oracle.Query(language.NewElementaryLanguage("ab", cond))
	log.Info(ctx, "symbolic membership query answered",
		logging.String("word", "ab"),
		logging.Int("conditions", len(result)),
	)

	cached := learning.NewMembershipOracleCache(
		learning.NewSULMembershipOracle(runner, collector), collector)
	for _, c := range result {
		sample := language.NewElementaryLanguage("ab", c).Sample()
		if !cached.Answer(sample) {
			log.Warn(ctx, "condition sample rejected by the runner",
				logging.String("condition", c.String()))
		}
		log.Info(ctx, "accepting condition", logging.String("condition", c.String()))
	}
	relax.SetCacheHitRatio(cached.HitRatio())
}

func transitionCount(ta *automata.TimedAutomaton) int {
	n := 0
	for _, s := range ta.States {
		for _, transitions := range s.Next {
			n += len(transitions)
		}
	}
	return n
}

func serveMetrics(addr string, collector *observability.LearnerCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
