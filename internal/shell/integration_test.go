package shell

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/epic"
	"github.com/zombor/epic-scan/internal/scanning"
	"github.com/zombor/epic-scan/internal/session"
)

// textRecognizer "reads" the image bytes as text
type textRecognizer struct {
	calls atomic.Int32
}

func (r *textRecognizer) Recognize(ctx context.Context, imageData []byte, contentType string) (*scanning.Text, error) {
	r.calls.Add(1)
	return &scanning.Text{Blocks: []scanning.Block{scanning.BlockFromText(string(imageData))}}, nil
}

func (r *textRecognizer) Close() error {
	return nil
}

// idleSource is never asked for a frame because the interval is long
type idleSource struct{}

func (idleSource) Capture(ctx context.Context, fidelity capture.Fidelity) (capture.Image, error) {
	return capture.Image{}, capture.ErrUnavailable
}

func (idleSource) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir    string
		recognizer *textRecognizer
		controller *session.Controller
		notices    *NoticeBoard
		ghServer   *ghttp.Server
		cancel     context.CancelFunc
		stopped    chan struct{}
	)

	getSession := func() map[string]any {
		resp, err := http.Get(ghServer.URL() + "/api/session")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		var body map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		return body
	}

	post := func(path string) int {
		resp, err := http.Post(ghServer.URL()+path, "", nil)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return resp.StatusCode
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "epic-scan-test-*")
		Expect(err).NotTo(HaveOccurred())

		Expect(os.WriteFile(filepath.Join(tempDir, "card.png"), []byte("ELECTION COMMISSION\nName: John\nEPIC No ABC1234567"), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tempDir, "blurry.png"), []byte("ID AB1234567C"), 0644)).To(Succeed())

		gallery, err := capture.NewGallery(tempDir)
		Expect(err).NotTo(HaveOccurred())

		recognizer = &textRecognizer{}
		notices = NewNoticeBoard(10)
		controller = session.NewController(idleSource{}, epic.NewExtractor(recognizer), notices, time.Hour)
		server := NewServer(controller, gallery, notices, BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler(http.MethodGet, regexp.MustCompile(`.*`), server.ServeHTTP)
		ghServer.RouteToHandler(http.MethodPost, regexp.MustCompile(`.*`), server.ServeHTTP)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		stopped = make(chan struct{})
		go func() {
			defer close(stopped)
			controller.Run(ctx)
		}()
		Expect(controller.Grant(ctx)).To(Succeed())
	})

	AfterEach(func() {
		cancel()
		Eventually(stopped).Should(BeClosed())
		if ghServer != nil {
			ghServer.Close()
		}
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
	})

	It("should find the identifier in a picked gallery image and hold it until reset", func() {
		first := getSession()
		Expect(first).To(HaveKeyWithValue("phase", "scanning"))

		Expect(post("/api/gallery/card.png/pick")).To(Equal(http.StatusAccepted))

		Eventually(getSession).Should(And(
			HaveKeyWithValue("phase", "found"),
			HaveKeyWithValue("last_result", "ABC1234567"),
			HaveKeyWithValue("busy", false),
			HaveKeyWithValue("timer_active", false),
		))

		// The result is held until the user resets
		Expect(post("/api/gallery/blurry.png/pick")).To(Equal(http.StatusConflict))
		Expect(recognizer.calls.Load()).To(BeEquivalentTo(1))

		Expect(post("/api/session/reset")).To(Equal(http.StatusOK))
		after := getSession()
		Expect(after).To(HaveKeyWithValue("phase", "scanning"))
		Expect(after).To(HaveKeyWithValue("timer_active", true))
		Expect(after).NotTo(HaveKey("last_result"))
		Expect(after["id"]).NotTo(Equal(first["id"]))
	})

	It("should post a notice when a picked image has no identifier", func() {
		Expect(post("/api/gallery/blurry.png/pick")).To(Equal(http.StatusAccepted))

		Eventually(func() []Notice { return notices.List() }).Should(HaveLen(1))
		Expect(notices.List()[0].Message).To(Equal(session.NoMatchMessage))

		// An on-demand miss leaves the timer stopped
		Eventually(getSession).Should(And(
			HaveKeyWithValue("phase", "scanning"),
			HaveKeyWithValue("busy", false),
			HaveKeyWithValue("timer_active", false),
		))

		// and the user can pick again
		Expect(post("/api/gallery/card.png/pick")).To(Equal(http.StatusAccepted))
		Eventually(getSession).Should(HaveKeyWithValue("last_result", "ABC1234567"))
	})

	It("should return Not Found for an unknown gallery image", func() {
		Expect(post("/api/gallery/missing.png/pick")).To(Equal(http.StatusNotFound))
		Expect(recognizer.calls.Load()).To(BeZero())
	})
})
