package shell

import (
	"bytes"
	"time"

	"github.com/fatih/color"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/epic-scan/internal/session"
)

var _ = Describe("NoticeBoard", func() {
	var board *NoticeBoard

	BeforeEach(func() {
		board = NewNoticeBoard(2)
		now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		board.now = func() time.Time {
			now = now.Add(time.Second)
			return now
		}
	})

	It("should start empty", func() {
		Expect(board.List()).To(BeEmpty())
	})

	It("should keep notices oldest first with their time", func() {
		board.Notify("one")
		board.Notify("two")

		notices := board.List()
		Expect(notices).To(HaveLen(2))
		Expect(notices[0].Message).To(Equal("one"))
		Expect(notices[1].Message).To(Equal("two"))
		Expect(notices[1].Time.After(notices[0].Time)).To(BeTrue())
	})

	It("should drop the oldest notice when full", func() {
		board.Notify("one")
		board.Notify("two")
		board.Notify("three")

		notices := board.List()
		Expect(notices).To(HaveLen(2))
		Expect(notices[0].Message).To(Equal("two"))
		Expect(notices[1].Message).To(Equal("three"))
	})

	It("should return a copy", func() {
		board.Notify("one")
		notices := board.List()
		notices[0].Message = "changed"
		Expect(board.List()[0].Message).To(Equal("one"))
	})

	It("should fall back to the default capacity", func() {
		Expect(NewNoticeBoard(0).capacity).To(Equal(defaultNoticeCapacity))
	})
})

var _ = Describe("Terminal", func() {
	var (
		out      *bytes.Buffer
		terminal *Terminal
		noColor  bool
	)

	BeforeEach(func() {
		noColor = color.NoColor
		color.NoColor = true
		out = &bytes.Buffer{}
		terminal = NewTerminal(out)
	})

	AfterEach(func() {
		color.NoColor = noColor
	})

	It("should print notices", func() {
		terminal.Notify(session.NoMatchMessage)
		Expect(out.String()).To(Equal("[NOTICE] No valid Voter ID detected\n"))
	})

	It("should print a banner when scanning starts", func() {
		terminal.Observe(session.Session{Phase: session.PhaseScanning})
		Expect(out.String()).To(Equal("Scanning Voter ID...\n"))
	})

	It("should not repeat the banner between attempts", func() {
		terminal.Observe(session.Session{Phase: session.PhaseScanning})
		terminal.Observe(session.Session{Phase: session.PhaseProcessing})
		terminal.Observe(session.Session{Phase: session.PhaseScanning})
		Expect(out.String()).To(Equal("Scanning Voter ID...\n"))
	})

	It("should print the identifier once when found", func() {
		terminal.Observe(session.Session{Phase: session.PhaseScanning})
		terminal.Observe(session.Session{Phase: session.PhaseProcessing})
		terminal.Observe(session.Session{Phase: session.PhaseFound, LastResult: "ABC1234567"})
		terminal.Observe(session.Session{Phase: session.PhaseFound, LastResult: "ABC1234567"})
		Expect(out.String()).To(Equal("Scanning Voter ID...\nVoter ID Detected  EPIC: ABC1234567\n"))
	})

	It("should print the banner again after a reset from found", func() {
		terminal.Observe(session.Session{Phase: session.PhaseFound, LastResult: "ABC1234567"})
		out.Reset()
		terminal.Observe(session.Session{Phase: session.PhaseScanning})
		Expect(out.String()).To(Equal("Scanning Voter ID...\n"))
	})
})
