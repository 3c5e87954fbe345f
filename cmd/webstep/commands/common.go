package commands

import (
	"context"
	"fmt"

	"github.com/loykin/webstep/internal/config"
	"github.com/loykin/webstep/internal/journal"
	"github.com/loykin/webstep/internal/step"
	"github.com/spf13/viper"
)

// loadConfig reads the config file named by --config / WEBSTEP_CONFIG and
// configures logging from it.
func loadConfig() (*config.ConfigDoc, error) {
	path := viper.GetString("config")
	var doc config.ConfigDoc
	if err := doc.Load(path); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// startStep builds and starts the configured step with its journal. The
// returned cleanup stops the step and closes the journal.
func startStep(ctx context.Context, doc *config.ConfigDoc, opts ...step.Option) (*step.Step, func(), error) {
	j, err := doc.OpenJournal(ctx)
	if err != nil {
		return nil, nil, err
	}
	if j != nil {
		opts = append(opts, step.WithRecorder(j))
	}
	s, err := doc.BuildStep(opts...)
	if err != nil {
		closeJournal(j)
		return nil, nil, err
	}
	if err := s.Start(ctx); err != nil {
		closeJournal(j)
		return nil, nil, err
	}
	return s, func() {
		_ = s.Stop()
		closeJournal(j)
	}, nil
}

func closeJournal(j *journal.Store) {
	if j != nil {
		_ = j.Close()
	}
}
