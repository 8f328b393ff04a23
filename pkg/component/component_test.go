package component_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
)

func TestComponent(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Component Suite")
}

var _ = Describe("Schema", func() {
	It("covers every known kind", func() {
		for _, kind := range component.Kinds() {
			Expect(component.Schema(kind)).NotTo(BeEmpty(), string(kind))
		}
	})

	It("returns nil for an unknown kind", func() {
		Expect(component.Schema(entity.Kind("Bogus"))).To(BeNil())
	})

	It("matches each fact's declared field order", func() {
		Expect(component.Schema(component.KindProcess)).To(Equal(
			[]string{"pid", "parent", "user", "command", "arguments"},
		))
	})
})

var _ = Describe("Fact field access", func() {
	It("reads scalar fields", func() {
		f := component.Process{PID: 42, Command: "launchd"}
		Expect(f.Field("pid").First()).To(Equal(42))
		Expect(f.Field("command").First()).To(Equal("launchd"))
	})

	It("treats the empty string as absent", func() {
		f := component.Named{Name: "launchd"}
		Expect(f.Field("sort").IsAbsent()).To(BeTrue())
	})

	It("yields absence for unknown field names", func() {
		f := component.File{Path: "/usr/bin/ls"}
		Expect(f.Field("bogus").IsAbsent()).To(BeTrue())
	})

	It("exposes a plain identity reference as a single value", func() {
		parent := entity.NewIdentity("process:1", "launchd")
		f := component.Process{PID: 42, Parent: parent}

		v := f.Field("parent")
		Expect(v.IsConflict()).To(BeFalse())
		Expect(v.First()).To(Equal(parent))
	})

	It("exposes a superposition reference as a conflict set", func() {
		f := component.Resource{Handle: entity.NewSuperposition(
			entity.NewIdentity("handle:42:3", ""),
			entity.NewIdentity("handle:42:4", ""),
		)}

		v := f.Field("handle")
		Expect(v.IsConflict()).To(BeTrue())
		Expect(v.All()).To(HaveLen(2))
	})

	It("treats a nil reference as absent", func() {
		f := component.Handle{FD: 3}
		Expect(f.Field("process").IsAbsent()).To(BeTrue())
		Expect(f.Field("resource").IsAbsent()).To(BeTrue())
	})

	It("keeps an empty slice field absent", func() {
		f := component.Connection{Source: "10.0.0.1:80"}
		Expect(f.Field("protocols").IsAbsent()).To(BeTrue())
	})
})
