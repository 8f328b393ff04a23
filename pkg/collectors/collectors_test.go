package collectors_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cairnforensics/cairn/pkg/collectors"
	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

func TestCollectors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Collectors Suite")
}

// memSource serves a fixed snapshot without touching disk.
type memSource struct {
	snap *evidence.Snapshot
}

func (s *memSource) Snapshot(context.Context) (*evidence.Snapshot, error) { return s.snap, nil }
func (s *memSource) Path() string                                         { return "mem://test" }
func (s *memSource) Close() error                                         { return nil }

func newTestSource() evidence.Source {
	return &memSource{snap: &evidence.Snapshot{
		Hostname: "target-01",
		Platform: "darwin",
		Processes: []evidence.ProcessRecord{
			{PID: 1, PPID: 0, UID: 0, Command: "launchd"},
			{PID: 42, PPID: 1, UID: 501, Command: "zsh", Arguments: []string{"-l"}},
		},
		Users: []evidence.UserRecord{
			{UID: 0, Username: "root"},
			{UID: 501, Username: "casey", Home: "/Users/casey"},
		},
		OpenFiles: []evidence.OpenFileRecord{
			{PID: 42, FD: 3, Path: "/var/log/system.log", Flags: "r"},
			{PID: 1, FD: 7, Path: "/var/log/system.log", Flags: "r"},
		},
		Sockets: []evidence.SocketRecord{
			{Inode: 9001, PID: 42, FDs: []int{5}, Proto: "tcp", Family: "inet", State: "ESTABLISHED",
				Source: "10.0.0.5:50123", Destination: "93.184.216.34:443"},
			{Inode: 9002, PID: 42, FDs: []int{6, 8}, Proto: "tcp", Family: "inet", State: "LISTEN",
				Source: "0.0.0.0:8080"},
		},
		Interfaces: []evidence.InterfaceRecord{
			{Name: "en0", Addresses: []evidence.AddressRecord{
				{Family: "inet", Address: "10.0.0.5"},
			}},
		},
	}}
}

var _ = Describe("Built-in collectors", func() {
	var (
		ctx   context.Context
		cache *entity.Cache
	)

	BeforeEach(func() {
		ctx = context.Background()
		cache = entity.NewCache(collectors.NewRegistry(newTestSource()))
	})

	Describe("process resolution", func() {
		It("yields one entity per pid with lineage and ownership references", func() {
			res := cache.FindByKind(ctx, component.KindProcess, false)
			Expect(res.Warnings).To(BeEmpty())
			Expect(res.Entities).To(HaveLen(2))

			e, ok := cache.Entity(collectors.ProcessID(42))
			Expect(ok).To(BeTrue())
			Expect(e.Get("Process.command").First()).To(Equal("zsh"))
			Expect(e.Get("Process.parent").First()).To(Equal(collectors.ProcessID(1)))
			Expect(e.Get("Process.user").First()).To(Equal(collectors.UserID(501)))
		})

		It("merges the independent name scan onto the same entities", func() {
			cache.FindByKind(ctx, component.KindProcess, false)

			e, ok := cache.Entity(collectors.ProcessID(1))
			Expect(ok).To(BeTrue())
			Expect(e.Get("Named.name").First()).To(Equal("launchd"))
			Expect(e.Sources()).To(ContainElements("proc_list", "name_scan"))
			Expect(e.Observations()).To(Equal(2))
		})

		It("treats the kernel's parent pid 0 as no parent", func() {
			cache.FindByKind(ctx, component.KindProcess, false)

			e, ok := cache.Entity(collectors.ProcessID(1))
			Expect(ok).To(BeTrue())
			Expect(e.Get("Process.parent").IsAbsent()).To(BeTrue())
		})
	})

	Describe("user resolution", func() {
		It("keeps uid 0 a valid identity", func() {
			res := cache.FindByKind(ctx, component.KindUser, false)
			Expect(res.Entities).To(HaveLen(2))

			e, ok := cache.Entity(collectors.UserID(0))
			Expect(ok).To(BeTrue())
			Expect(e.Get("User.username").First()).To(Equal("root"))
		})
	})

	Describe("file resolution", func() {
		It("folds shared paths into one file entity", func() {
			res := cache.FindByKind(ctx, component.KindFile, false)
			Expect(res.Entities).To(HaveLen(1))
			Expect(res.Entities[0].Get("File.path").First()).To(Equal("/var/log/system.log"))
		})

		It("links handles to their file and owning process", func() {
			cache.FindByKind(ctx, component.KindFile, false)

			e, ok := cache.Entity(collectors.HandleID(42, 3))
			Expect(ok).To(BeTrue())
			Expect(e.Get("Handle.resource").First()).To(Equal(collectors.FileID("/var/log/system.log")))
			Expect(e.Get("Handle.process").First()).To(Equal(collectors.ProcessID(42)))
		})
	})

	Describe("socket resolution", func() {
		It("yields one connection per socket", func() {
			res := cache.FindByKind(ctx, component.KindConnection, false)
			Expect(res.Entities).To(HaveLen(2))
		})

		It("binds an unambiguous socket through a concrete handle", func() {
			cache.FindByKind(ctx, component.KindConnection, false)

			h, ok := cache.Entity(collectors.HandleID(42, 5))
			Expect(ok).To(BeTrue())
			Expect(h.Get("Handle.resource").First()).To(Equal(collectors.SocketID(9001)))
		})

		It("keeps ambiguous descriptor ownership as a superposition", func() {
			cache.FindByKind(ctx, component.KindConnection, false)

			sock, ok := cache.Entity(collectors.SocketID(9002))
			Expect(ok).To(BeTrue())

			handle := sock.Get("Resource.handle")
			Expect(handle.IsConflict()).To(BeTrue())
			Expect(handle.All()).To(ConsistOf(
				collectors.HandleID(42, 6),
				collectors.HandleID(42, 8),
			))
		})

		It("never fabricates a handle entity for ambiguous descriptors", func() {
			cache.FindByKind(ctx, component.KindConnection, false)

			_, ok := cache.Entity(collectors.HandleID(42, 6))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("interface resolution", func() {
		It("yields interfaces with their bound addresses", func() {
			res := cache.FindByKind(ctx, component.KindNetworkInterface, false)
			Expect(res.Entities).To(HaveLen(1))

			addrs := res.Entities[0].Get("NetworkInterface.addresses")
			Expect(addrs.First()).To(Equal([]component.Address{
				{Family: "inet", Address: "10.0.0.5"},
			}))
		})
	})

	Describe("Named queries", func() {
		It("spans processes, users, files, and interfaces", func() {
			res := cache.FindByKind(ctx, component.KindNamed, false)

			// 2 processes + 2 users + 1 file + 1 interface.
			Expect(res.Entities).To(HaveLen(6))
		})
	})
})

var _ = Describe("Identity constructors", func() {
	It("maps out-of-range inputs to the zero identity", func() {
		Expect(collectors.ProcessID(0).IsZero()).To(BeTrue())
		Expect(collectors.UserID(-1).IsZero()).To(BeTrue())
		Expect(collectors.FileID("").IsZero()).To(BeTrue())
		Expect(collectors.SocketID(0).IsZero()).To(BeTrue())
		Expect(collectors.InterfaceID("").IsZero()).To(BeTrue())
	})

	It("keys processes by pid regardless of display", func() {
		Expect(collectors.ProcessID(42).Key()).To(Equal("process:42"))
		Expect(collectors.UserID(0).Key()).To(Equal("user:0"))
		Expect(collectors.HandleID(42, 3).Key()).To(Equal("handle:42:3"))
	})
})
