// Package step implements the web request pipeline step: each eligible
// inbound message becomes one HTTP request per payload item, and every
// successful response becomes one outbound message.
package step

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/webstep/internal/auth"
	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/httpc"
	"github.com/loykin/webstep/internal/journal"
	"github.com/loykin/webstep/internal/metrics"
	"github.com/loykin/webstep/internal/param"
	"github.com/loykin/webstep/internal/request"
	"github.com/loykin/webstep/internal/util"
	"github.com/loykin/webstep/pkg/endpoint"
	"github.com/loykin/webstep/pkg/message"
)

var (
	ErrMissingEndpoint = errors.New("step: an HTTP endpoint must be configured")
	ErrMissingMethod   = errors.New("step: HTTP method must be set in the step or the endpoint")
	ErrInvalidState    = errors.New("step: invalid state")
)

// Step is one configured web request step. Handle calls are serialized.
type Step struct {
	name     string
	cfg      Config
	endpoint *endpoint.Endpoint

	flow      Flow
	recorder  journal.Recorder
	metrics   *metrics.Metrics
	logger    *common.Logger
	tlsConfig *tls.Config

	mu       sync.Mutex
	state    atomic.Int32
	builder  *request.Builder
	client   *httpc.Client
	entities atomic.Int64
}

// New creates an idle step. Settings are validated by Start.
func New(name string, cfg Config, ep *endpoint.Endpoint, opts ...Option) *Step {
	s := &Step{name: name, cfg: cfg.withDefaults(), endpoint: ep}
	s.logger = common.GetLogger()
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithStep(name)
	return s
}

func (s *Step) Name() string { return s.name }

func (s *Step) State() State { return State(s.state.Load()) }

// EntitiesProcessed counts payload items that reached request building.
func (s *Step) EntitiesProcessed() int64 { return s.entities.Load() }

// Start validates the configuration and creates the HTTP client. Nothing is
// sent over the network.
func (s *Step) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateIdle {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, st)
	}
	if s.endpoint == nil {
		return ErrMissingEndpoint
	}
	raw := util.FirstNonBlank(s.cfg.HTTPMethod, s.endpoint.HTTPMethod)
	if raw == "" {
		return ErrMissingMethod
	}
	method, err := request.ParseMethod(raw)
	if err != nil {
		return err
	}
	tlsCfg := s.tlsConfig
	if tlsCfg == nil {
		if tlsCfg, err = httpc.TLSConfig(s.endpoint.Insecure, s.endpoint.MinTLSVersion); err != nil {
			return err
		}
	}
	authenticator, err := auth.New(s.endpoint, auth.WithTLSConfig(tlsCfg))
	if err != nil {
		return err
	}
	if _, err := request.LookupCharset(s.cfg.Encoding); err != nil {
		return err
	}

	s.builder = &request.Builder{
		Endpoint: s.endpoint,
		Method:   method,
		Auth:     authenticator,
		Charset:  s.cfg.Encoding,
		Logger:   s.logger.WithComponent("request"),
	}
	s.client = httpc.New(httpc.Options{
		Timeout:   s.endpoint.Timeout(),
		TLSConfig: tlsCfg,
		Logger:    s.logger.WithComponent("httpc"),
	})
	s.state.Store(int32(StateReady))
	s.logger.Info("step started", "method", string(method), "security", authenticator.Mode(), "run_when", s.cfg.RunWhen)
	return nil
}

// Handle processes one inbound message. Messages that do not match the
// run-when cadence are ignored. The first failing request aborts the message
// and its error is returned; earlier outbound messages stay sent.
func (s *Step) Handle(ctx context.Context, msg message.Message, sink message.Sink) error {
	if sink == nil {
		return message.ErrNilSink
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateReady {
		return fmt.Errorf("%w: cannot handle messages while %s", ErrInvalidState, st)
	}
	if !s.eligible(msg) {
		s.metrics.MessageSkipped(s.name)
		if s.flow.StartStep {
			s.logger.Warn(fmt.Sprintf("step is configured as a start step but run when is set to %s; you might want to switch run when to %s",
				s.cfg.RunWhen, s.otherCadence()))
		}
		return nil
	}

	s.state.Store(int32(StateRunning))
	defer s.state.Store(int32(StateReady))

	invocation := uuid.NewString()
	log := s.logger.WithInvocation(invocation)

	pc := param.Context{Flow: s.flow.Parameters, Message: msg.Headers}
	headers := request.ParseHeaderBlock(pc.Resolve(s.cfg.HTTPHeaders))
	params := request.ParseBlock(pc.Resolve(s.cfg.HTTPParameters))
	path := request.AssemblePath(s.endpoint.URL, pc.Resolve(s.cfg.RelativePath), params)

	for i, item := range s.payload(msg) {
		s.entities.Add(1)
		s.metrics.EntityProcessed(s.name)

		h, body := headers, item
		if s.cfg.ParameterReplacement {
			h = pc.ResolveMap(headers)
			body = pc.Resolve(item)
		}
		if err := s.send(ctx, log, invocation, path, h, body, sink); err != nil {
			log.Error("request failed", "item", i, "error", err)
			return err
		}
	}
	return nil
}

// Stop releases the HTTP client. Calling it again is a no-op.
func (s *Step) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateStopped {
		return nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("unable to close http client", "error", err)
		}
	}
	s.state.Store(int32(StateStopped))
	s.logger.Info("step stopped", "entities_processed", s.entities.Load())
	return nil
}

func (s *Step) eligible(msg message.Message) bool {
	return s.cfg.PerUnitOfWork() == msg.IsControl()
}

func (s *Step) otherCadence() string {
	if s.cfg.PerUnitOfWork() {
		return constants.RunPerMessage
	}
	return constants.RunPerUnitOfWork
}

func (s *Step) payload(msg message.Message) []string {
	if s.cfg.BodyFromMessage() && !msg.IsControl() {
		return msg.Payload
	}
	return []string{s.cfg.BodyText}
}

func (s *Step) send(ctx context.Context, log *common.Logger, invocation, path string, headers map[string]string, body string, sink message.Sink) error {
	spec, err := s.builder.Build(ctx, path, headers, body)
	if err != nil {
		return err
	}
	if spec.Kind.EnclosesEntity() && spec.Body != nil {
		log.Info("sending content", "url", common.MaskSensitiveData(spec.URL.String()), "method", spec.Kind.Method())
	} else {
		log.Info("getting content", "url", common.MaskSensitiveData(spec.URL.String()), "method", spec.Kind.Method())
	}

	start := time.Now()
	res, err := s.client.Execute(ctx, spec)
	elapsed := time.Since(start)
	s.metrics.RequestDone(s.name, spec.Kind.Method(), err, elapsed)
	s.record(ctx, log, journal.Run{
		Step:       s.name,
		Invocation: invocation,
		Method:     spec.Kind.Method(),
		URL:        spec.URL.String(),
		Duration:   elapsed,
		RanAt:      start,
	}, res, err)
	if err != nil {
		return err
	}

	if err := sink.Send(message.NewData(res.Header, res.Body)); err != nil {
		return fmt.Errorf("step: deliver response message: %w", err)
	}
	return nil
}

// record journals a run. Journal failures never fail the step.
func (s *Step) record(ctx context.Context, log *common.Logger, run journal.Run, res *httpc.Result, callErr error) {
	if s.recorder == nil {
		return
	}
	switch {
	case res != nil:
		run.StatusCode = res.StatusCode
		run.Body = &res.Body
	case callErr != nil:
		run.Failed = true
		run.Error = callErr.Error()
		var re *httpc.RemoteError
		if errors.As(callErr, &re) && re.Err == nil {
			run.StatusCode = re.StatusCode
			run.Body = &re.Body
		}
	}
	if err := s.recorder.Record(ctx, run); err != nil {
		log.Warn("failed to journal request", "error", err)
	}
}
