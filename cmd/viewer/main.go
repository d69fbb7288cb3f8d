// Command viewer opens a document from the document server, replays a
// script of viewer interactions and exports every page with its annotations.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pdf-viewer/internal/config"
	"pdf-viewer/internal/domain"
	"pdf-viewer/internal/render"
	"pdf-viewer/internal/viewer"
	"pdf-viewer/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	cfg := config.NewConfig()

	var (
		documentID = flag.String("id", "", "document identifier")
		baseURL    = flag.String("server", cfg.GetDocumentBaseURL(), "document server base URL")
		scriptPath = flag.String("script", "", "JSON interaction script (optional)")
		outDir     = flag.String("out", "out", "directory for exported pages")
		width      = flag.Float64("width", cfg.GetViewportWidth(), "viewport width in CSS pixels")
		height     = flag.Float64("height", cfg.GetViewportHeight(), "viewport height in CSS pixels")
		dpr        = flag.Float64("dpr", cfg.GetDevicePixelRatio(), "device pixel ratio")
		timeout    = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	appLogger := logger.NewLogger(cfg.GetLogLevel())
	if err := run(appLogger, cfg, options{
		documentID: *documentID,
		baseURL:    *baseURL,
		scriptPath: *scriptPath,
		outDir:     *outDir,
		viewport:   domain.Size{Width: *width, Height: *height},
		dpr:        *dpr,
		timeout:    *timeout,
	}); err != nil {
		appLogger.Error("Viewer failed", err)
		os.Exit(1)
	}
}

type options struct {
	documentID string
	baseURL    string
	scriptPath string
	outDir     string
	viewport   domain.Size
	dpr        float64
	timeout    time.Duration
}

func run(appLogger domain.Logger, cfg domain.Config, opts options) error {
	if err := opts.viewport.Validate(); err != nil {
		return err
	}

	var script Script
	if opts.scriptPath != "" {
		f, err := os.Open(opts.scriptPath)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		s, err := parseScript(f)
		f.Close()
		if err != nil {
			return err
		}
		script = *s
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	loader := viewer.NewDocumentLoader(
		&http.Client{Timeout: opts.timeout},
		render.NewFitzOpener(appLogger),
		viewer.LoaderOptions{BaseURL: opts.baseURL, MaxFileSize: cfg.GetMaxFileSize()},
		appLogger,
	)
	container := newMemContainer(opts.viewport.Width, opts.viewport.Height)
	status := &viewer.TextStatus{}
	scheduler := &queuedScheduler{}

	controller := viewer.NewController(loader, container, status, viewer.Options{
		ViewportWidth:    opts.viewport.Width,
		ResizeDebounce:   cfg.GetResizeDebounce(),
		RescaleThreshold: cfg.GetRescaleThreshold(),
		Layout:           viewer.LayoutOptions{DevicePixelRatio: opts.dpr, PageGap: cfg.GetPageGap()},
		AfterFunc:        scheduler.AfterFunc,
	}, appLogger)
	defer controller.Close()

	if err := controller.Open(ctx, opts.documentID); err != nil {
		msg, _ := status.LoaderMessage()
		return fmt.Errorf("%s: %w", msg, err)
	}

	p := &player{controller: controller, container: container, scheduler: scheduler, logger: appLogger}
	if err := p.run(script.Steps); err != nil {
		return err
	}

	if err := exportPages(opts.outDir, controller.Pages()); err != nil {
		return err
	}
	appLogger.Info("Viewer finished",
		"document_id", opts.documentID,
		"status", status.PageInfo(),
		"scale", controller.Scale(),
		"out", opts.outDir,
	)
	return nil
}

func exportPages(dir string, pages []*viewer.PagePair) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, p := range pages {
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", p.Index))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		err = png.Encode(f, p.Composite())
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
