// Package providers builds the storage, fetcher and refresh backends selected
// by configuration.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/handler"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/wordpress"
)

// Providers holds the constructed backends. Close releases the ones that hold
// local resources.
type Providers struct {
	AWS          aws.Config
	Store        cache.Store
	Cache        *cache.ContentCache
	Fetcher      wordpress.Fetcher
	NewPublisher handler.PublisherFactory

	closers []func() error
}

// Setup builds every backend except the refresh publisher, which is built on
// first use through NewPublisher.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Providers, error) {
	// Fetcher invokes and refresh publishes are attempted once.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p := &Providers{AWS: awsCfg}

	p.Store, err = p.openStore(cfg)
	if err != nil {
		return nil, err
	}

	var mirrorOpts []cache.MirrorOption
	if cfg.BasicAuth.Enabled() {
		mirrorOpts = append(mirrorOpts, cache.WithBasicAuth(cfg.BasicAuth.User, cfg.BasicAuth.Password))
	}
	p.Cache = cache.NewContentCache(p.Store, cache.Options{
		Provenance:   cache.Provenance{Origin: cfg.APIURL, Version: cfg.CacheVersion},
		Timeout:      cfg.CacheTimeout(),
		Images:       cache.NewImageMirror(p.Store, mirrorOpts...),
		StrictImages: cfg.StrictImages,
	})

	p.Fetcher, err = wordpress.NewLambdaFetcher(cfg.FetcherFunc,
		wordpress.WithInvoker(lambda.NewFromConfig(awsCfg)),
		wordpress.WithLogger(log.With().Str("component", "fetcher").Logger()),
	)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	p.NewPublisher = p.publisherFactory(awsCfg)
	return p, nil
}

func (p *Providers) openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendLevelDB:
		d, err := cache.OpenDiskStore(cfg.LevelDBPath)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, d.Close)
		return d, nil
	default:
		return cache.NewS3Store(s3.NewFromConfig(p.AWS), cfg.Bucket)
	}
}

func (p *Providers) publisherFactory(awsCfg aws.Config) handler.PublisherFactory {
	return func(cfg *config.Config) (refresh.Publisher, error) {
		if cfg.RefreshBackend == config.RefreshAsynq {
			client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			p.closers = append(p.closers, client.Close)
			return refresh.NewQueuePublisher(client), nil
		}
		return refresh.NewSNSPublisher(sns.NewFromConfig(awsCfg), cfg.TopicARN)
	}
}

// Close releases local resources
func (p *Providers) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
