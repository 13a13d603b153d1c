package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/model"
	"gatepass/internal/render"
)

type recordingArchiver struct {
	keys []string
	err  error
}

func (a *recordingArchiver) Put(ctx context.Context, key string, data []byte) error {
	a.keys = append(a.keys, key)
	return a.err
}

func newDocuments(t *testing.T, f *ledgerFixture, archiver *recordingArchiver) (DocumentService, *render.Signer) {
	t.Helper()
	signer := render.NewSigner("test-secret")
	renderer := render.NewRenderer(signer, render.Options{Location: f.loc})
	cfg := DocumentConfig{ArchivePrefix: "gatepasses", Now: f.clock.Now}
	if archiver != nil {
		cfg.Archiver = archiver
	}
	return NewDocumentService(f.repo, renderer, cfg), signer
}

func TestDocumentService_Download(t *testing.T) {
	f := newLedger(t)
	archiver := &recordingArchiver{}
	docs, _ := newDocuments(t, f, archiver)
	ctx := context.Background()

	approved := f.seedPass("S101", model.PassStatusApproved, model.ExitStatusNotOut)
	pending := f.seedPass("S102", model.PassStatusPending, model.ExitStatusNotOut)
	rejected := f.seedPass("S101", model.PassStatusRejected, model.ExitStatusNotOut)

	doc, err := docs.Download(ctx, studentActor, approved.ID.String())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
	assert.Equal(t, "gatepass-"+approved.Code+".pdf", doc.Filename)
	assert.Equal(t, []string{"gatepasses/S101/" + approved.Code + ".pdf"}, archiver.keys)

	// staff get the same bytes
	again, err := docs.Download(ctx, wardenActor, approved.ID.String())
	require.NoError(t, err)
	assert.Equal(t, doc.Content, again.Content)

	_, err = docs.Download(ctx, otherStudent, approved.ID.String())
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization))

	_, err = docs.Download(ctx, otherStudent, pending.ID.String())
	assert.True(t, errors.Is(err, apperrors.ErrPrecondition))

	_, err = docs.Download(ctx, securityActor, rejected.ID.String())
	assert.True(t, errors.Is(err, apperrors.ErrPrecondition))

	_, err = docs.Download(ctx, securityActor, "8b0a6c52-2f4e-4c1e-9b7a-3f1d2e4c5a6b")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDocumentService_DownloadSurvivesArchiveFailure(t *testing.T) {
	f := newLedger(t)
	archiver := &recordingArchiver{err: errors.New("bucket unavailable")}
	docs, _ := newDocuments(t, f, archiver)

	approved := f.seedPass("S101", model.PassStatusApproved, model.ExitStatusNotOut)
	doc, err := docs.Download(context.Background(), studentActor, approved.ID.String())
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Content)
	assert.Len(t, archiver.keys, 1)
}

func TestDocumentService_Verify(t *testing.T) {
	f := newLedger(t)
	docs, signer := newDocuments(t, f, nil)
	ctx := context.Background()

	approved := f.seedPass("S101", model.PassStatusApproved, model.ExitStatusOut)
	stored, err := f.repo.FindByID(ctx, approved.ID)
	require.NoError(t, err)
	payload := signer.PayloadFor(stored)

	t.Run("genuine document", func(t *testing.T) {
		v, err := docs.Verify(ctx, securityActor, payload.String())
		require.NoError(t, err)
		assert.True(t, v.Valid)
		require.NotNil(t, v.Pass)
		assert.Equal(t, approved.ID, v.Pass.ID)
		assert.Equal(t, model.ExitStatusOut, v.Pass.ExitStatus)
	})

	t.Run("fingerprint is case insensitive", func(t *testing.T) {
		p := payload
		p.Fingerprint = strings.ToUpper(p.Fingerprint)
		v, err := docs.Verify(ctx, wardenActor, p.String())
		require.NoError(t, err)
		assert.True(t, v.Valid)
	})

	t.Run("forged fingerprint", func(t *testing.T) {
		p := payload
		p.Fingerprint = strings.Repeat("0", len(p.Fingerprint))
		v, err := docs.Verify(ctx, securityActor, p.String())
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.Equal(t, "fingerprint does not match", v.Reason)
		assert.Nil(t, v.Pass)
	})

	t.Run("code mismatch", func(t *testing.T) {
		p := payload
		p.Code = "GP-ZZZZZZZZ"
		v, err := docs.Verify(ctx, securityActor, p.String())
		require.NoError(t, err)
		assert.False(t, v.Valid)
	})

	t.Run("pass not approved", func(t *testing.T) {
		pending := f.seedPass("S102", model.PassStatusPending, model.ExitStatusNotOut)
		p := render.Payload{PassID: pending.ID, Code: pending.Code, Fingerprint: payload.Fingerprint}
		v, err := docs.Verify(ctx, securityActor, p.String())
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.Equal(t, "pass is Pending", v.Reason)
	})

	t.Run("unknown pass", func(t *testing.T) {
		p := payload
		p.PassID[0] ^= 0xff
		_, err := docs.Verify(ctx, securityActor, p.String())
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, err := docs.Verify(ctx, securityActor, "hello")
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})

	t.Run("students may not verify", func(t *testing.T) {
		_, err := docs.Verify(ctx, studentActor, payload.String())
		assert.True(t, errors.Is(err, apperrors.ErrAuthorization))
	})
}
