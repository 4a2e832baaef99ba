package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/capture/camera"
	"github.com/zombor/epic-scan/internal/config"
	"github.com/zombor/epic-scan/internal/epic"
	"github.com/zombor/epic-scan/internal/scanning"
	"github.com/zombor/epic-scan/internal/scanning/tesseract"
	"github.com/zombor/epic-scan/internal/session"
	"github.com/zombor/epic-scan/internal/shell"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	config.LoadEnv()

	fs := ff.NewFlagSet("epic-scan")
	var (
		sourceType     = fs.StringLong("source", "camera", "Frame source: 'camera' or 'file'")
		cameraDevice   = fs.IntLong("camera-device", 0, "Camera device index")
		imageFile      = fs.StringLong("image-file", "", "Image file re-read on every periodic capture (with --source file)")
		galleryPath    = fs.StringLong("gallery", "", "Directory of images that can be picked for an on-demand scan (optional)")
		pickName       = fs.StringLong("pick", "", "Scan this gallery image once on startup")
		recognizerType = fs.StringLong("recognizer", "tesseract", "Text recognizer: 'tesseract', 'gemini' or 'ollama'")
		languages      = fs.StringLong("lang", "eng", "Tesseract languages, comma separated")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		interval       = fs.DurationLong("interval", session.DefaultInterval, "Periodic capture interval")
		port           = fs.IntLong("port", 8080, "HTTP server port (0 disables the web interface)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EPIC_SCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	os.Exit(run(options{
		sourceType:     *sourceType,
		cameraDevice:   *cameraDevice,
		imageFile:      *imageFile,
		galleryPath:    *galleryPath,
		pickName:       *pickName,
		recognizerType: *recognizerType,
		languages:      *languages,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		interval:       *interval,
		port:           *port,
		authUser:       *authUser,
		authPass:       *authPass,
	}))
}

// options are the parsed command line settings
type options struct {
	sourceType     string
	cameraDevice   int
	imageFile      string
	galleryPath    string
	pickName       string
	recognizerType string
	languages      string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	interval       time.Duration
	port           int
	authUser       string
	authPass       string
}

// run wires the scanner together and blocks until it is interrupted.
// It returns the process exit code so deferred cleanup always runs.
func run(opts options) int {
	// Initialize recognizer based on type
	var recognizer scanning.Recognizer
	var err error
	switch opts.recognizerType {
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "languages", opts.languages)
		recognizer, err = tesseract.New(strings.Split(opts.languages, ",")...)
		if err != nil {
			slog.Error("Failed to initialize Tesseract", "error", err)
			return 1
		}
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := opts.geminiKey
		if apiKey == "" {
			apiKey, _ = config.EnvVariable("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			return 1
		}
		slog.Info("Initializing Gemini recognizer...", "model", opts.geminiModel)
		recognizer, err = scanning.NewGemini(apiKey, opts.geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			return 1
		}
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", opts.ollamaURL, "model", opts.ollamaModel)
		recognizer, err = scanning.NewOllama(opts.ollamaURL, opts.ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			return 1
		}
	default:
		slog.Error("Invalid recognizer type", "type", opts.recognizerType, "valid", "tesseract, gemini or ollama")
		return 1
	}
	defer recognizer.Close()

	// Initialize gallery
	var gallery *capture.Gallery
	if opts.galleryPath != "" {
		slog.Info("Initializing gallery...", "path", opts.galleryPath)
		gallery, err = capture.NewGallery(opts.galleryPath)
		if err != nil {
			slog.Error("Failed to initialize gallery", "error", err)
			return 1
		}
	}

	// Open the frame source; failing to open the camera is a permission denial, not a crash
	var source capture.Source
	var sourceErr error
	switch opts.sourceType {
	case "camera":
		slog.Info("Opening camera...", "device", opts.cameraDevice)
		cam, err := camera.Open(opts.cameraDevice)
		if err != nil {
			sourceErr = err
		} else {
			source = cam
		}
	case "file":
		if opts.imageFile == "" {
			slog.Error("--image-file is required with --source file")
			return 1
		}
		slog.Info("Using image file as frame source", "path", opts.imageFile)
		source = capture.NewFile(opts.imageFile)
	default:
		slog.Error("Invalid source type", "type", opts.sourceType, "valid", "camera or file")
		return 1
	}
	if source != nil {
		defer source.Close()
	}

	terminal := shell.NewTerminal(os.Stdout)
	notices := shell.NewNoticeBoard(0)
	controller := session.NewController(source, epic.NewExtractor(recognizer), session.MultiNotifier{terminal, notices}, opts.interval)
	controller.Observe(terminal.Observe)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- controller.Run(ctx)
	}()

	if sourceErr != nil {
		slog.Warn("Frame source unavailable", "error", sourceErr)
		if err := controller.Deny(ctx); err != nil {
			slog.Error("Failed to report camera permission", "error", err)
		}
	} else if err := controller.Grant(ctx); err != nil {
		slog.Error("Failed to start scanning", "error", err)
		stop()
		<-runErr
		return 1
	}

	if opts.pickName != "" {
		pickOnce(ctx, controller, gallery, opts.pickName)
	}

	if opts.port != 0 {
		basicAuth := shell.BasicAuth{
			Username: opts.authUser,
			Password: opts.authPass,
		}
		var g shell.Gallery
		if gallery != nil {
			g = gallery
		}
		server := shell.NewServer(controller, g, notices, basicAuth)

		addr := fmt.Sprintf(":%d", opts.port)
		go func() {
			if err := server.Start(ctx, addr); err != nil {
				slog.Error("Server error", "error", err)
				stop()
			}
		}()

		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
		if opts.authUser != "" || opts.authPass != "" {
			slog.Info("Basic auth enabled", "user", opts.authUser)
		}
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Scanner stopped", "error", err)
	}
	slog.Info("Shutting down...")
	return 0
}

// pickOnce submits a gallery image the way the web page does
func pickOnce(ctx context.Context, controller *session.Controller, gallery *capture.Gallery, name string) {
	if gallery == nil {
		config.Warning("--pick needs --gallery; ignoring")
		return
	}

	img, err := gallery.Pick(name)
	if errors.Is(err, capture.ErrCancelled) {
		return
	}
	if err != nil {
		slog.Error("Failed to pick gallery image", "name", name, "error", err)
		return
	}

	accepted, err := controller.Pick(ctx, img)
	if err != nil {
		slog.Error("Failed to submit picked image", "error", err)
		return
	}
	if !accepted {
		config.Warning("Picked image was not scanned: a scan is already running, an identifier was already found, or the camera is unavailable")
	}
}
