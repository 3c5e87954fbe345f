package step

import (
	"crypto/tls"

	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/journal"
	"github.com/loykin/webstep/internal/metrics"
)

type Option func(*Step)

func WithFlow(f Flow) Option {
	return func(s *Step) { s.flow = f }
}

// WithRecorder journals every executed request.
func WithRecorder(r journal.Recorder) Option {
	return func(s *Step) { s.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Step) { s.metrics = m }
}

func WithLogger(l *common.Logger) Option {
	return func(s *Step) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTLSConfig overrides the TLS settings derived from the endpoint.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Step) { s.tlsConfig = cfg }
}
