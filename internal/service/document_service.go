package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gatepass/internal/archive"
	"gatepass/internal/model"
	"gatepass/internal/policy"
	"gatepass/internal/render"
	"gatepass/internal/repository"
)

// Document is a rendered gate pass ready to be served.
type Document struct {
	Filename string
	Content  []byte
	Pass     *model.GatePass
}

// Verification is the outcome of checking a scanned QR payload against the ledger.
type Verification struct {
	Valid  bool      `json:"valid"`
	Reason string    `json:"reason,omitempty"`
	Pass   *PassView `json:"pass,omitempty"`
}

// DocumentService exports approved passes and verifies scanned documents.
// It only reads the ledger.
type DocumentService interface {
	Download(ctx context.Context, actor policy.Actor, passID string) (*Document, error)
	Verify(ctx context.Context, actor policy.Actor, payload string) (*Verification, error)
}

// DocumentConfig carries optional collaborators. A nil Archiver disables archiving.
type DocumentConfig struct {
	Archiver      archive.Archiver
	ArchivePrefix string
	Logger        *slog.Logger
	Now           func() time.Time
}

type documentService struct {
	passes        repository.GatePassRepository
	renderer      *render.Renderer
	archiver      archive.Archiver
	archivePrefix string
	logger        *slog.Logger
	now           func() time.Time
}

// NewDocumentService creates a document service.
func NewDocumentService(passes repository.GatePassRepository, renderer *render.Renderer, cfg DocumentConfig) DocumentService {
	if cfg.Archiver == nil {
		cfg.Archiver = archive.Noop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &documentService{
		passes:        passes,
		renderer:      renderer,
		archiver:      cfg.Archiver,
		archivePrefix: cfg.ArchivePrefix,
		logger:        ResolveLogger(cfg.Logger),
		now:           cfg.Now,
	}
}

// Download renders the document of an approved pass. Students may only download their own.
func (s *documentService) Download(ctx context.Context, actor policy.Actor, passID string) (*Document, error) {
	id, err := parsePassID(passID)
	if err != nil {
		return nil, err
	}
	pass, err := loadPass(ctx, s.passes, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionDownloadDocument, pass.StudentID); err != nil {
		return nil, err
	}

	content, err := s.renderer.Render(pass)
	if err != nil {
		return nil, err
	}

	key := archive.DocumentKey(s.archivePrefix, pass.StudentID, pass.Code)
	if err := s.archiver.Put(ctx, key, content); err != nil {
		s.logger.Warn("archive gate pass document", "pass_id", pass.ID, "key", key, "error", err)
	}

	return &Document{
		Filename: fmt.Sprintf("gatepass-%s.pdf", pass.Code),
		Content:  content,
		Pass:     pass,
	}, nil
}

// Verify checks a scanned payload. Unknown passes are NotFound; a forged or
// stale document yields Valid=false with a reason.
func (s *documentService) Verify(ctx context.Context, actor policy.Actor, raw string) (*Verification, error) {
	if err := policy.Authorize(actor, policy.ActionVerifyDocument, ""); err != nil {
		return nil, err
	}
	payload, err := render.ParsePayload(raw)
	if err != nil {
		return nil, err
	}
	pass, err := loadPass(ctx, s.passes, payload.PassID)
	if err != nil {
		return nil, err
	}

	switch {
	case pass.Code != payload.Code:
		return &Verification{Reason: "pass code does not match"}, nil
	case pass.Status != model.PassStatusApproved:
		return &Verification{Reason: fmt.Sprintf("pass is %s", pass.Status)}, nil
	case !s.renderer.Signer().Matches(pass, payload.Fingerprint):
		s.logger.Warn("gate pass fingerprint mismatch", "pass_id", pass.ID, "verifier_id", actor.ID)
		return &Verification{Reason: "fingerprint does not match"}, nil
	}

	view := newPassView(pass, s.now())
	return &Verification{Valid: true, Pass: &view}, nil
}
