package links

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/validation"
)

const maxGenerateAttempts = 10

type Service struct {
	linkRepo   LinkRepository
	ledger     ClickLedger
	generator  CodeGenerator
	codeLength int
	now        func() time.Time
}

func NewService(linkRepo LinkRepository, ledger ClickLedger, generator CodeGenerator, codeLength int) *Service {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}

	return &Service{
		linkRepo:   linkRepo,
		ledger:     ledger,
		generator:  generator,
		codeLength: codeLength,
		now:        time.Now,
	}
}

// CreateLink stores a link under the requested code, reviving it if it was
// soft-deleted, or under a generated code when none was given.
func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*CreateResult, error) {
	target := validation.SanitizeURL(in.TargetURL)
	if !validation.IsValidURL(target) {
		return nil, ErrInvalidURL
	}

	link := &Link{
		TargetURL: target,
		OwnerID:   strings.TrimSpace(in.OwnerID),
		CreatedAt: s.now().UTC(),
		IsActive:  true,
	}

	code := strings.TrimSpace(in.Code)
	if code != "" {
		if !validation.IsValidCode(code) {
			return nil, ErrInvalidCode
		}
		link.Code = code
		stored, status, err := s.linkRepo.CreateOrReactivate(ctx, link)
		if err != nil {
			return nil, err
		}
		return &CreateResult{Link: stored, Status: status}, nil
	}

	for range maxGenerateAttempts {
		generated, err := s.generator.Generate(s.codeLength)
		if err != nil {
			return nil, err
		}
		link.Code = generated

		stored, err := s.linkRepo.Insert(ctx, link)
		if errors.Is(err, ErrCodeConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &CreateResult{Link: stored, Status: StatusCreated}, nil
	}

	return nil, ErrCodeConflict
}

func (s *Service) GetLink(ctx context.Context, code string) (*Link, error) {
	code = strings.TrimSpace(code)
	if !validation.IsValidCode(code) {
		return nil, ErrNotFound
	}
	return s.linkRepo.FindActive(ctx, code)
}

func (s *Service) ListLinks(ctx context.Context) ([]Link, error) {
	return s.linkRepo.ListActive(ctx)
}

func (s *Service) DeleteLink(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !validation.IsValidCode(code) {
		return ErrNotFound
	}
	return s.linkRepo.SoftDelete(ctx, code, s.now().UTC())
}

// Resolve returns the target URL for code and records the visit. Malformed
// codes are reported as ErrNotFound without reaching storage.
func (s *Service) Resolve(ctx context.Context, code string, click ClickInput) (string, error) {
	if !validation.IsValidCode(code) {
		return "", ErrNotFound
	}
	return s.ledger.ResolveAndRecord(ctx, code, click, s.now().UTC())
}

// SuggestCodes generates up to count fresh codes and drops the ones already
// stored in any state.
func (s *Service) SuggestCodes(ctx context.Context, count, length int) ([]string, error) {
	if length <= 0 {
		length = s.codeLength
	}

	candidates, err := s.generator.GenerateBatch(count, length)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	taken, err := s.linkRepo.ExistingCodes(ctx, candidates)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
