package evidence_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cairnforensics/cairn/pkg/evidence"
)

const bundleSchema = `
CREATE TABLE meta (hostname TEXT, platform TEXT, captured_at TEXT);
CREATE TABLE processes (pid INTEGER, ppid INTEGER, uid INTEGER, command TEXT, arguments TEXT);
CREATE TABLE users (uid INTEGER, username TEXT, home TEXT, real_name TEXT);
CREATE TABLE open_files (pid INTEGER, fd INTEGER, path TEXT, flags TEXT);
CREATE TABLE sockets (inode INTEGER, pid INTEGER, fds TEXT, proto TEXT, family TEXT, state TEXT, source TEXT, destination TEXT);
CREATE TABLE interfaces (name TEXT, addresses TEXT);
`

var _ = Describe("SQLiteSource", func() {
	var (
		tmpDir string
		path   string
		ctx    context.Context
	)

	// writeBundle creates a bundle database and runs each statement in
	// order after the schema.
	writeBundle := func(statements ...string) {
		db, err := sql.Open("sqlite3", path)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		_, err = db.Exec(bundleSchema)
		Expect(err).NotTo(HaveOccurred())
		for _, stmt := range statements {
			_, err = db.Exec(stmt)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "evidence-sqlite-test-*")
		Expect(err).NotTo(HaveOccurred())

		path = filepath.Join(tmpDir, "snapshot.sqlite")
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("loads every bundle table", func() {
		writeBundle(
			`INSERT INTO meta VALUES ('target-01', 'darwin', '2026-03-14T09:30:00Z')`,
			`INSERT INTO processes VALUES (1, 0, 0, 'launchd', NULL)`,
			`INSERT INTO processes VALUES (42, 1, 501, 'zsh', '["-l","-i"]')`,
			`INSERT INTO users VALUES (501, 'casey', '/Users/casey', 'Casey R')`,
			`INSERT INTO open_files VALUES (42, 3, '/var/log/system.log', 'r')`,
			`INSERT INTO sockets VALUES (9001, 42, '[5]', 'tcp', 'inet', 'ESTABLISHED', '10.0.0.2:51404', '93.184.216.34:443')`,
			`INSERT INTO interfaces VALUES ('en0', '[{"family":"inet","address":"10.0.0.2"}]')`,
		)

		src, err := evidence.NewSQLiteSource(path)
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()

		snap, err := src.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(snap.Hostname).To(Equal("target-01"))
		Expect(snap.Platform).To(Equal("darwin"))
		Expect(snap.CapturedAt.IsZero()).To(BeFalse())

		Expect(snap.Processes).To(HaveLen(2))
		Expect(snap.Processes[0].Arguments).To(BeEmpty())
		Expect(snap.Processes[1].Arguments).To(Equal([]string{"-l", "-i"}))

		Expect(snap.Users).To(HaveLen(1))
		Expect(snap.Users[0].Home).To(Equal("/Users/casey"))

		Expect(snap.OpenFiles).To(HaveLen(1))
		Expect(snap.OpenFiles[0].Path).To(Equal("/var/log/system.log"))

		Expect(snap.Sockets).To(HaveLen(1))
		Expect(snap.Sockets[0].FDs).To(Equal([]int{5}))
		Expect(snap.Sockets[0].Destination).To(Equal("93.184.216.34:443"))

		Expect(snap.Interfaces).To(HaveLen(1))
		Expect(snap.Interfaces[0].Addresses).To(Equal([]evidence.AddressRecord{
			{Family: "inet", Address: "10.0.0.2"},
		}))
	})

	It("tolerates an empty meta table", func() {
		writeBundle(`INSERT INTO processes VALUES (1, 0, 0, 'launchd', NULL)`)

		src, err := evidence.NewSQLiteSource(path)
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()

		snap, err := src.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Hostname).To(BeEmpty())
		Expect(snap.Processes).To(HaveLen(1))
	})

	It("memoizes the load across calls", func() {
		writeBundle(`INSERT INTO processes VALUES (1, 0, 0, 'launchd', NULL)`)

		src, err := evidence.NewSQLiteSource(path)
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()

		first, err := src.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		second, err := src.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
	})

	It("reports malformed array columns", func() {
		writeBundle(`INSERT INTO processes VALUES (42, 1, 501, 'zsh', 'not json')`)

		src, err := evidence.NewSQLiteSource(path)
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()

		_, err = src.Snapshot(ctx)
		Expect(err).To(MatchError(ContainSubstring("arguments for pid 42")))
	})

	It("is picked by Open for .sqlite paths", func() {
		writeBundle()

		src, err := evidence.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()
		Expect(src.Path()).To(Equal(path))
	})
})
