package container

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"go-card-scanner/internal/config"
	"go-card-scanner/internal/extract"
	"go-card-scanner/internal/logger"
	"go-card-scanner/internal/observer"
	"go-card-scanner/internal/ocr"
	"go-card-scanner/internal/preprocess"
	"go-card-scanner/internal/qr"
	"go-card-scanner/internal/repository"
	"go-card-scanner/internal/scanner"
	"go-card-scanner/internal/storage"
	"go-card-scanner/internal/transport"
)

// Container holds all application dependencies. Optional collaborators
// (repository, archiver) stay nil when their capability is not configured.
type Container struct {
	config    *config.Config
	fetcher   storage.ImageFetcher
	contacts  repository.ContactRepository
	archiver  storage.BlobArchiver
	scanner   *scanner.Scanner
	pool      *scanner.WorkerPool
	publisher observer.Subject
	handler   http.Handler
}

// NewContainer builds the full dependency graph from configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		loaded, err := config.LoadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	fetcher := storage.NewHTTPImageFetcher(cfg.RequestTimeout, cfg.MaxRequestBodySize)

	qrDecoders := []qr.Decoder{
		qr.NewGoQRDecoder(),
		qr.NewZXingDecoder(),
	}
	if cfg.RemoteQREnabled() {
		qrDecoders = append(qrDecoders, qr.NewRemoteDecoder(cfg.RemoteQREndpoint, cfg.ExternalTimeout))
	}
	qrEngine := qr.NewEngine(qrDecoders...)

	ocrEngines := []ocr.Engine{
		ocr.NewTesseractEngine(cfg.OCRLanguage),
	}
	if cfg.VisionEnabled() {
		ocrEngines = append(ocrEngines, ocr.NewVisionEngine(cfg.VisionEndpoint, cfg.VisionAPIKey, cfg.ExternalTimeout))
	}
	reconciler := ocr.NewReconciler(ocrEngines...)

	pool := scanner.NewWorkerPool(runtime.NumCPU())
	pool.Start()

	scan := scanner.New(preprocess.NewPreprocessor(), qrEngine, reconciler, extract.NewExtractor(), pool)

	var contacts repository.ContactRepository
	if cfg.PersistenceEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ExternalTimeout)
		repo, err := repository.NewMongoContactRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to connect contact repository: %w", err)
		}
		contacts = repo
	}

	var archiver storage.BlobArchiver
	if cfg.ArchiveEnabled() {
		a, err := storage.NewAzureArchiver(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob archiver: %w", err)
		}
		archiver = a
	}

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	handler := transport.NewHandler(scan, fetcher, contacts, archiver, publisher, metrics, cfg)

	return &Container{
		config:    cfg,
		fetcher:   fetcher,
		contacts:  contacts,
		archiver:  archiver,
		scanner:   scan,
		pool:      pool,
		publisher: publisher,
		handler:   handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases pooled workers and external connections.
func (c *Container) Close(ctx context.Context) error {
	c.pool.Close()
	if c.contacts != nil {
		return c.contacts.Close(ctx)
	}
	return nil
}
