package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/logging"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/storage"
)

// maxGenerateAttempts bounds the generate-check-insert loop. Exhausting it
// means the keyspace is saturated or the uniqueness check is racing, and
// that must surface as an error rather than loop forever.
const maxGenerateAttempts = 10

type Options struct {
	// CodeLength is the length of generated codes, clamped to [6,8].
	CodeLength int
	// ReuseDeletedCodes allows the allocator to hand out a code that exists
	// only as a soft-deleted row. When false, the pre-check also consults
	// deleted rows; the store index cannot enforce that, so it is advisory.
	ReuseDeletedCodes bool
}

type LinkService struct {
	storage storage.LinkStorage
	logger  *logging.Logger
	opts    Options
	nowFunc func() time.Time
}

func NewLinkService(store storage.LinkStorage, logger *logging.Logger, opts Options) *LinkService {
	if opts.CodeLength < 6 {
		opts.CodeLength = 6
	}
	if opts.CodeLength > 8 {
		opts.CodeLength = 8
	}
	return &LinkService{
		storage: store,
		logger:  logger,
		opts:    opts,
		nowFunc: time.Now,
	}
}

type CreateLinkRequest struct {
	TargetURL string `json:"targetUrl"`
	Code      string `json:"code,omitempty"`
}

// CreateLink validates the target URL and either reserves the requested
// code or generates a fresh unique one. Validation happens before any
// store mutation; the store's unique index remains the authoritative
// uniqueness guard, so an insert collision is handled even after a clean
// existence pre-check.
func (s *LinkService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*storage.Link, error) {
	targetURL := strings.TrimSpace(req.TargetURL)
	if !ValidateTargetURL(targetURL) {
		s.logger.LogURLValidation(ctx, false)
		return nil, invalidInput("Invalid target URL")
	}
	s.logger.LogURLValidation(ctx, true)

	if code := strings.TrimSpace(req.Code); code != "" {
		return s.createWithCustomCode(ctx, targetURL, code)
	}
	return s.createWithGeneratedCode(ctx, targetURL)
}

func (s *LinkService) createWithCustomCode(ctx context.Context, targetURL, code string) (*storage.Link, error) {
	if !ValidateCode(code) {
		return nil, invalidInput("Invalid short code format")
	}

	exists, err := s.storage.CodeExists(ctx, code, !s.opts.ReuseDeletedCodes)
	if err != nil {
		return nil, storeError("failed to check code", err)
	}
	if exists {
		return nil, conflict("Short code already exists")
	}

	link := &storage.Link{Code: code, TargetURL: targetURL}
	if err := s.storage.Create(ctx, link); err != nil {
		if errors.Is(err, storage.ErrDuplicateCode) {
			// Lost the race between pre-check and insert.
			return nil, conflict("Short code already exists")
		}
		return nil, storeError("failed to create link", err)
	}

	s.logger.LogLinkOperation(ctx, "create", code, true)
	return link, nil
}

func (s *LinkService) createWithGeneratedCode(ctx context.Context, targetURL string) (*storage.Link, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := GenerateCode(s.opts.CodeLength)
		if err != nil {
			return nil, storeError("failed to generate code", err)
		}

		exists, err := s.storage.CodeExists(ctx, code, !s.opts.ReuseDeletedCodes)
		if err != nil {
			return nil, storeError("failed to check code", err)
		}
		if exists {
			continue
		}

		link := &storage.Link{Code: code, TargetURL: targetURL}
		err = s.storage.Create(ctx, link)
		if err == nil {
			s.logger.LogLinkOperation(ctx, "create", code, true)
			return link, nil
		}
		if errors.Is(err, storage.ErrDuplicateCode) {
			// Concurrent allocator won this code; try another.
			continue
		}
		return nil, storeError("failed to create link", err)
	}

	s.logger.LogLinkOperation(ctx, "create", "", false)
	return nil, generationExhausted("Could not generate unique code")
}

// GetLink returns the active link for code.
func (s *LinkService) GetLink(ctx context.Context, code string) (*storage.Link, error) {
	link, err := s.storage.GetByCode(ctx, code)
	if err != nil {
		return nil, storeError("failed to fetch link", err)
	}
	if link == nil {
		return nil, notFound("Link not found")
	}
	return link, nil
}

// ListLinks returns one page of active links plus the total match count.
// Out-of-range page and limit values fall back to defaults.
func (s *LinkService) ListLinks(ctx context.Context, page, limit int, search string) ([]storage.Link, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	links, total, err := s.storage.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, storeError("failed to list links", err)
	}
	return links, total, nil
}

// DeleteLink soft-deletes the link for code.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	ok, err := s.storage.MarkDeleted(ctx, code)
	if err != nil {
		return storeError("failed to delete link", err)
	}
	if !ok {
		return notFound("Link not found")
	}
	s.logger.LogLinkOperation(ctx, "delete", code, true)
	return nil
}

// RecordVisit resolves code and accounts one click. The increment and the
// visit timestamp are applied by the store in a single atomic operation;
// this layer never does read-counter-then-write-counter.
func (s *LinkService) RecordVisit(ctx context.Context, code string) (*storage.Link, error) {
	link, err := s.storage.RecordVisit(ctx, code, s.nowFunc().UTC())
	if err != nil {
		return nil, storeError("failed to record visit", err)
	}
	if link == nil {
		return nil, notFound("Link not found")
	}
	s.logger.LogLinkOperation(ctx, "visit", code, true)
	return link, nil
}
