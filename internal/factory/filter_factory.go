package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/adapters/filter"
	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ml"
	"github.com/mikey/email-classifier/internal/ports"
	"github.com/mikey/email-classifier/internal/utils"
	"github.com/mikey/email-classifier/internal/whitelist"
)

// FilterFactory creates front-ends based on configuration
type FilterFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	service       *core.ClassifierService
	models        *ml.ModelStore
	textProcessor *utils.TextProcessor
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.ClassifierService,
	models *ml.ModelStore,
	textProcessor *utils.TextProcessor,
) *FilterFactory {
	return &FilterFactory{
		cfg:           cfg,
		logger:        logger,
		service:       service,
		models:        models,
		textProcessor: textProcessor,
	}
}

// CreateEmailFilter creates the front-end named by server.filter_type
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "http":
		readTimeout, err := f.cfg.GetDuration("server.read_timeout")
		if err != nil {
			return nil, err
		}
		return filter.NewHTTPFilter(f.service, f.models, f.logger, filter.HTTPOptions{
			ListenAddr:  f.cfg.GetString("server.listen_address"),
			BodyLimit:   f.cfg.GetInt("server.body_limit"),
			ReadTimeout: readTimeout,
		}), nil
	case "smtp":
		timeout, err := f.cfg.GetDuration("smtp.classify_timeout")
		if err != nil {
			return nil, err
		}
		checker := whitelist.NewChecker(f.cfg.GetStringSlice("smtp.whitelisted_domains"), f.logger)
		return filter.NewSMTPFilter(f.service, checker, f.logger, filter.SMTPOptions{
			ListenAddr:       f.cfg.GetString("smtp.listen_address"),
			RelayEnabled:     f.cfg.GetBool("smtp.relay.enabled"),
			RelayAddr:        f.cfg.GetString("smtp.relay.address"),
			RelayPort:        f.cfg.GetInt("smtp.relay.port"),
			LabelHeader:      f.cfg.GetString("smtp.headers.label"),
			ConfidenceHeader: f.cfg.GetString("smtp.headers.confidence"),
			CategoryHeader:   f.cfg.GetString("smtp.headers.category"),
			ClassifyTimeout:  timeout,
		}), nil
	case "cli":
		return filter.NewCliFilter(
			f.service,
			f.logger,
			f.textProcessor,
			os.Stdout,
			f.cfg.GetBool("cli.json"),
			f.cfg.GetBool("cli.verbose"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
