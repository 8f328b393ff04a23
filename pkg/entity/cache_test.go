package entity_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
)

// countingCollector wraps a fixed yield with an invocation counter so
// specs can assert a collector never runs twice.
func countingCollector(name string, kinds []entity.Kind, obs []entity.Observation, calls *int) *entity.Collector {
	return &entity.Collector{
		Name:     name,
		Produces: kinds,
		Collect: func(context.Context) ([]entity.Observation, error) {
			*calls++
			return obs, nil
		},
	}
}

func failingCollector(name string, kinds []entity.Kind, calls *int) *entity.Collector {
	return &entity.Collector{
		Name:     name,
		Produces: kinds,
		Collect: func(context.Context) ([]entity.Observation, error) {
			*calls++
			return nil, errors.New("page table torn")
		},
	}
}

var _ = Describe("Cache", func() {
	var ctx context.Context

	procID := entity.NewIdentity("process:42", "launchd")

	procObs := []entity.Observation{{
		Identity: procID,
		Facts:    []entity.Fact{component.Process{PID: 42, Command: "launchd"}},
	}}

	nameObs := []entity.Observation{{
		Identity: procID,
		Facts:    []entity.Fact{component.Named{Name: "launchd", Sort: "process"}},
	}}

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("inserts a fresh identity as a new entity", func() {
			cache := entity.NewCache(entity.NewRegistry())

			e := cache.Register(procID, []entity.Fact{component.Process{PID: 42}}, "proc_list")
			Expect(e).NotTo(BeNil())
			Expect(cache.Len()).To(Equal(1))
		})

		It("merges repeated registrations under the preserving policy", func() {
			cache := entity.NewCache(entity.NewRegistry())

			cache.Register(procID, []entity.Fact{component.Process{PID: 42, Command: "launchd"}}, "proc_list")
			e := cache.Register(procID, []entity.Fact{component.Process{PID: 42, Command: "evil"}}, "carve_scan")

			Expect(cache.Len()).To(Equal(1))
			Expect(e.Get("Process.command").IsConflict()).To(BeTrue())
			Expect(e.Sources()).To(Equal([]string{"carve_scan", "proc_list"}))
		})

		It("folds facts of different kinds into one entity", func() {
			cache := entity.NewCache(entity.NewRegistry())

			cache.Register(procID, []entity.Fact{component.Process{PID: 42}}, "proc_list")
			e := cache.Register(procID, []entity.Fact{component.Named{Name: "launchd"}}, "name_scan")

			Expect(e.HasKind(component.KindProcess)).To(BeTrue())
			Expect(e.HasKind(component.KindNamed)).To(BeTrue())
			Expect(e.Observations()).To(Equal(2))
		})

		It("drops observations with a zero identity", func() {
			cache := entity.NewCache(entity.NewRegistry())

			e := cache.Register(entity.Identity{}, []entity.Fact{component.Process{PID: 1}}, "proc_list")
			Expect(e).To(BeNil())
			Expect(cache.Len()).To(BeZero())
		})
	})

	Describe("FindByKind", func() {
		It("runs the collectors producing the kind and returns their entities", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &calls),
			)
			cache := entity.NewCache(registry)

			res := cache.FindByKind(ctx, component.KindProcess, false)
			Expect(res.Entities).To(HaveLen(1))
			Expect(res.Entities[0].Identity().Key()).To(Equal("process:42"))
			Expect(calls).To(Equal(1))
		})

		It("never invokes a collector twice in one session", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &calls),
			)
			cache := entity.NewCache(registry)

			first := cache.FindByKind(ctx, component.KindProcess, false)
			second := cache.FindByKind(ctx, component.KindProcess, false)

			Expect(calls).To(Equal(1))
			Expect(second.Entities).To(HaveLen(len(first.Entities)))
			Expect(cache.CollectorRan("proc_list")).To(BeTrue())
		})

		It("memoizes an empty yield so the collector still never reruns", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, nil, &calls),
			)
			cache := entity.NewCache(registry)

			cache.FindByKind(ctx, component.KindProcess, false)
			cache.FindByKind(ctx, component.KindProcess, false)

			Expect(calls).To(Equal(1))
			Expect(cache.CollectorRan("proc_list")).To(BeTrue())
		})

		It("absorbs a collector failure as a warning and lets the rest resolve", func() {
			var goodCalls, badCalls int
			registry := entity.NewRegistry(
				failingCollector("carve_scan", []entity.Kind{component.KindProcess}, &badCalls),
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &goodCalls),
			)
			cache := entity.NewCache(registry)

			res := cache.FindByKind(ctx, component.KindProcess, false)
			Expect(res.Entities).To(HaveLen(1))
			Expect(res.Warnings).To(HaveLen(1))
			Expect(res.Warnings[0].Collector).To(Equal("carve_scan"))
		})

		It("does not memoize a failed collector, allowing a later retry", func() {
			var badCalls int
			registry := entity.NewRegistry(
				failingCollector("carve_scan", []entity.Kind{component.KindProcess}, &badCalls),
			)
			cache := entity.NewCache(registry)

			cache.FindByKind(ctx, component.KindProcess, false)
			cache.FindByKind(ctx, component.KindProcess, false)

			Expect(badCalls).To(Equal(2))
			Expect(cache.CollectorRan("carve_scan")).To(BeFalse())
		})

		It("includes collectors for related kinds unless the query is exact", func() {
			var procCalls, nameCalls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &procCalls),
				countingCollector("name_scan", []entity.Kind{component.KindNamed}, nameObs, &nameCalls),
			)
			registry.Relate(component.KindProcess, component.KindNamed)
			cache := entity.NewCache(registry)

			res := cache.FindByKind(ctx, component.KindProcess, false)
			Expect(procCalls).To(Equal(1))
			Expect(nameCalls).To(Equal(1))

			// Both collectors contributed to the one entity.
			Expect(res.Entities).To(HaveLen(1))
			Expect(res.Entities[0].Sources()).To(Equal([]string{"name_scan", "proc_list"}))
		})

		It("skips related kinds for an exact query", func() {
			var procCalls, nameCalls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &procCalls),
				countingCollector("name_scan", []entity.Kind{component.KindNamed}, nameObs, &nameCalls),
			)
			registry.Relate(component.KindProcess, component.KindNamed)
			cache := entity.NewCache(registry)

			cache.Find(ctx, entity.Query{Kind: component.KindProcess, ExactKind: true})
			Expect(procCalls).To(Equal(1))
			Expect(nameCalls).To(BeZero())
		})

		It("only returns entities actually carrying the requested kind", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("name_scan", []entity.Kind{component.KindNamed, component.KindProcess}, nameObs, &calls),
			)
			cache := entity.NewCache(registry)

			res := cache.FindByKind(ctx, component.KindProcess, false)
			Expect(res.Entities).To(BeEmpty())
		})

		It("never runs collectors or mutates the cache when cache-only", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &calls),
			)
			cache := entity.NewCache(registry)

			res := cache.FindByKind(ctx, component.KindProcess, true)
			Expect(res.Entities).To(BeEmpty())
			Expect(calls).To(BeZero())
			Expect(cache.Len()).To(BeZero())
		})

		It("replays memoized collectors even in cache-only mode", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &calls),
			)
			cache := entity.NewCache(registry)

			cache.FindByKind(ctx, component.KindProcess, false)
			res := cache.FindByKind(ctx, component.KindProcess, true)

			Expect(res.Entities).To(HaveLen(1))
			Expect(calls).To(Equal(1))
		})
	})

	Describe("FindByIdentity", func() {
		It("resolves a registered plain identity", func() {
			cache := entity.NewCache(entity.NewRegistry())
			cache.Register(procID, []entity.Fact{component.Process{PID: 42}}, "proc_list")

			out := cache.FindByIdentity(procID, false)
			Expect(out).To(HaveLen(1))
		})

		It("resolves nothing for an unknown identity by default", func() {
			cache := entity.NewCache(entity.NewRegistry())

			out := cache.FindByIdentity(procID, false)
			Expect(out).To(BeEmpty())
			Expect(cache.Len()).To(BeZero())
		})

		It("expands a superposition to its registered variants, skipping the rest", func() {
			cache := entity.NewCache(entity.NewRegistry())
			cache.Register(procID, nil, "proc_list")

			ref := entity.NewSuperposition(procID, entity.NewIdentity("process:99", ""))
			out := cache.FindByIdentity(ref, false)
			Expect(out).To(HaveLen(1))
			Expect(out[0].Identity().Key()).To(Equal("process:42"))
		})

		It("resolves nothing for a nil reference", func() {
			cache := entity.NewCache(entity.NewRegistry())
			Expect(cache.FindByIdentity(nil, false)).To(BeEmpty())
		})

		Context("with auto-create enabled", func() {
			It("materializes a provisional entity for an unknown plain identity", func() {
				cache := entity.NewCache(entity.NewRegistry(), entity.WithAutoCreate(true))

				out := cache.FindByIdentity(procID, false)
				Expect(out).To(HaveLen(1))
				Expect(out[0].Kinds()).To(BeEmpty())
				Expect(cache.Len()).To(Equal(1))
			})

			It("never materializes superposition variants", func() {
				cache := entity.NewCache(entity.NewRegistry(), entity.WithAutoCreate(true))

				ref := entity.NewSuperposition(procID, entity.NewIdentity("process:99", ""))
				Expect(cache.FindByIdentity(ref, false)).To(BeEmpty())
				Expect(cache.Len()).To(BeZero())
			})

			It("never materializes in cache-only mode", func() {
				cache := entity.NewCache(entity.NewRegistry(), entity.WithAutoCreate(true))

				Expect(cache.FindByIdentity(procID, true)).To(BeEmpty())
				Expect(cache.Len()).To(BeZero())
			})
		})
	})

	Describe("Find", func() {
		It("prefers the identity when both identity and kind are set", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &calls),
			)
			cache := entity.NewCache(registry)
			cache.Register(procID, nil, "seed")

			res := cache.Find(ctx, entity.Query{Identity: procID, Kind: component.KindProcess})
			Expect(res.Entities).To(HaveLen(1))
			Expect(calls).To(BeZero())
		})

		It("yields an empty result for a vacuous query", func() {
			cache := entity.NewCache(entity.NewRegistry())
			res := cache.Find(ctx, entity.Query{})
			Expect(res.Entities).To(BeEmpty())
			Expect(res.Warnings).To(BeEmpty())
		})
	})

	Describe("Stats", func() {
		It("counts entities, collectors run, and merged observations", func() {
			var calls int
			registry := entity.NewRegistry(
				countingCollector("proc_list", []entity.Kind{component.KindProcess}, procObs, &calls),
			)
			cache := entity.NewCache(registry)

			cache.FindByKind(ctx, component.KindProcess, false)
			cache.Register(procID, []entity.Fact{component.Named{Name: "launchd"}}, "name_scan")

			stats := cache.Stats()
			Expect(stats.Entities).To(Equal(1))
			// Direct registration memoizes under the collector too.
			Expect(stats.CollectorsRun).To(Equal(2))
			Expect(stats.Observations).To(Equal(2))
		})
	})
})
