package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/model"
	"github.com/sifan077/curto/internal/app/redirect"
	"github.com/sifan077/curto/internal/app/repository"
	"github.com/sifan077/curto/internal/app/shortid"
	"github.com/sifan077/curto/internal/app/telemetry"
)

// LinkService defines behaviour-level operations on links. Every returned
// error is a *Error.
type LinkService interface {
	Create(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	Get(ctx context.Context, id string) (*model.Link, error)
	List(ctx context.Context) ([]model.Link, error)
	Redirect(ctx context.Context, input RedirectInput) (*Redirect, error)
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	TargetURL string
	// CustomID is optional; nil asks the service to generate one.
	CustomID *string
	// RequestHost is the host[:port] the creation request was addressed to.
	RequestHost string
}

// RedirectInput captures the parts of the redirect request the service needs.
type RedirectInput struct {
	ID       string
	RawQuery string
	Headers  http.Header
}

// Redirect is the resolved outbound redirect.
type Redirect struct {
	Target  string
	Headers http.Header
	Link    *model.Link
}

// Dependencies bundles what the link service needs.
type Dependencies struct {
	Store  repository.LinkStore
	Codec  *shortid.Codec
	Filter *shortid.TakenFilter
	Sink   telemetry.Sink
	Logger *zap.Logger
}

type linkService struct {
	store  repository.LinkStore
	codec  *shortid.Codec
	filter *shortid.TakenFilter
	sink   telemetry.Sink
	logger *zap.Logger
}

// NewLinkService returns a service implementation backed by the given store.
func NewLinkService(deps Dependencies) LinkService {
	return newLinkService(deps)
}

func newLinkService(deps Dependencies) *linkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := deps.Codec
	if codec == nil {
		codec = shortid.Default()
	}
	filter := deps.Filter
	if filter == nil {
		filter = shortid.NewTakenFilter(0, 0)
	}
	return &linkService{
		store:  deps.Store,
		codec:  codec,
		filter: filter,
		sink:   telemetry.OrNop(deps.Sink),
		logger: logger,
	}
}

// Warm seeds filter with every stored ID so generated IDs skip known
// collisions. It returns the number of IDs loaded.
func Warm(ctx context.Context, store repository.LinkStore, filter *shortid.TakenFilter) (int, error) {
	links, err := store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, link := range links {
		filter.Add(link.ID)
	}
	return len(links), nil
}

func (s *linkService) Create(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	target, err := s.checkTarget(input.TargetURL, input.RequestHost)
	if err != nil {
		return nil, err
	}

	var link *model.Link
	if input.CustomID != nil {
		link, err = s.insertCustom(ctx, *input.CustomID, target)
	} else {
		link, err = s.insertGenerated(ctx, target)
	}
	if err != nil {
		return nil, err
	}

	s.filter.Add(link.ID)
	s.sink.Record(telemetry.Event{
		Kind:      telemetry.LinkCreated,
		LinkID:    link.ID,
		TargetURL: link.TargetURL,
		At:        time.Now(),
	})
	s.logger.Info("link created",
		zap.String("id", link.ID),
		zap.String("target_url", link.TargetURL),
		zap.Bool("custom_id", input.CustomID != nil),
	)
	return link, nil
}

// checkTarget validates rawURL and returns its normalised form.
func (s *linkService) checkTarget(rawURL, requestHost string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "", newError(KindMalformedURL, urlErr.Err.Error())
		}
		return "", newError(KindMalformedURL, err.Error())
	}
	if !u.IsAbs() {
		return "", newError(KindMalformedURL, "relative URL without a base")
	}
	if u.Host == "" {
		return "", newError(KindURLWithoutHost, rawURL)
	}
	u.Host = strings.ToLower(u.Host)
	if redirect.HostsMatch(requestHost, u.Host) {
		return "", newError(KindURLWithMatchingHosts, u.Host)
	}
	return u.String(), nil
}

func (s *linkService) insertCustom(ctx context.Context, id, target string) (*model.Link, error) {
	if !s.codec.ValidateID(id) {
		return nil, newError(KindLinkIDNotValid, id)
	}

	link, err := s.store.Insert(ctx, id, target)
	switch {
	case err == nil:
		return link, nil
	case errors.Is(err, repository.ErrDuplicateID):
		return nil, newError(KindLinkIDNotUnique, id)
	default:
		return nil, internalError("insert link", err)
	}
}

func (s *linkService) insertGenerated(ctx context.Context, target string) (*model.Link, error) {
	for attempt := 1; attempt <= shortid.MaxGenerateAttempts; attempt++ {
		id := s.codec.GenerateID()
		if s.filter.MaybeTaken(id) {
			s.logger.Debug("generated id probably taken", zap.String("id", id), zap.Int("attempt", attempt))
			continue
		}

		link, err := s.store.Insert(ctx, id, target)
		switch {
		case err == nil:
			return link, nil
		case errors.Is(err, repository.ErrDuplicateID):
			s.filter.Add(id)
			s.logger.Warn("generated id collided", zap.String("id", id), zap.Int("attempt", attempt))
		default:
			return nil, internalError("insert link", err)
		}
	}
	return nil, internalError("insert link", errors.New("no free generated id"))
}

func (s *linkService) Get(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, newError(KindLinkNotFound, id)
		}
		return nil, internalError("find link", err)
	}
	return link, nil
}

func (s *linkService) List(ctx context.Context) ([]model.Link, error) {
	links, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, internalError("list links", err)
	}
	return links, nil
}

func (s *linkService) Redirect(ctx context.Context, input RedirectInput) (*Redirect, error) {
	link, err := s.store.IncrementRedirectCount(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, newError(KindLinkNotFound, input.ID)
		}
		return nil, internalError("increment link", err)
	}

	target, err := redirect.BuildTarget(link.TargetURL, input.RawQuery)
	if err != nil {
		s.logger.Error("stored target url is corrupt", zap.String("id", link.ID), zap.Error(err))
		return nil, internalError("build redirect target", err)
	}

	headers := http.Header{}
	headers.Set("Location", target)
	headers.Set("Cache-Control", redirect.CacheControl)
	headers = redirect.ForwardHeaders(headers, input.Headers)

	s.sink.Record(telemetry.Event{
		Kind:      telemetry.LinkRedirected,
		LinkID:    link.ID,
		TargetURL: target,
		Redirects: link.CountRedirects,
		At:        time.Now(),
	})

	return &Redirect{Target: target, Headers: headers, Link: link}, nil
}
