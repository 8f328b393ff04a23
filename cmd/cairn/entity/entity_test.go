package entitycmder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	entitycmder "github.com/cairnforensics/cairn/cmd/cairn/entity"
)

func TestEntityCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Entity Command Suite")
}

var _ = Describe("EntityAPI", func() {
	It("fetches one entity by identity key", func() {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"identity": "process:42",
				"display": "process 42",
				"facts": {"Process": {"pid": 42, "command": "zsh"}},
				"sources": ["proc_list"],
				"observations": 1
			}`))
		}))
		defer srv.Close()

		doc, err := entitycmder.EntityAPI(context.Background(), srv.URL, "process:42")
		Expect(err).NotTo(HaveOccurred())

		Expect(gotPath).To(Equal("/entities/process:42"))
		Expect(doc.Identity).To(Equal("process:42"))
		Expect(doc.Facts["Process"]).To(HaveKey("command"))
	})

	It("keeps slashes in identity keys on the request path", func() {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_, _ = w.Write([]byte(`{"identity": "file:/usr/bin/ls", "facts": {}}`))
		}))
		defer srv.Close()

		_, err := entitycmder.EntityAPI(context.Background(), srv.URL, "file:/usr/bin/ls")
		Expect(err).NotTo(HaveOccurred())
		Expect(gotPath).To(Equal("/entities/file:/usr/bin/ls"))
	})

	It("reports a miss as a lookup error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"entity not found"}`))
		}))
		defer srv.Close()

		_, err := entitycmder.EntityAPI(context.Background(), srv.URL, "process:404")
		Expect(err).To(MatchError(ContainSubstring(`no entity with identity "process:404"`)))
	})
})
