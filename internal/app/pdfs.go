package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"tubemindai/internal/util"
	"tubemindai/pkg/domain"
	"tubemindai/pkg/ingest"
	"tubemindai/pkg/notes"
	"tubemindai/pkg/store"
)

// UploadPDF stores the original file, extracts its text, and creates the
// document row in pending state. Notes are generated by a separate call.
func (a *App) UploadPDF(ctx context.Context, user domain.User, fileName string, r io.Reader, size int64) (domain.PDFDocument, error) {
	fileName = path.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." {
		return domain.PDFDocument{}, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if !strings.EqualFold(path.Ext(fileName), ".pdf") {
		return domain.PDFDocument{}, fmt.Errorf("%w: %v", ErrValidation, ingest.ErrUnsupportedFormat)
	}
	if size > a.maxUploadBytes {
		return domain.PDFDocument{}, fmt.Errorf("%w: file exceeds %d MB limit", ErrValidation, a.maxUploadBytes>>20)
	}

	data, err := io.ReadAll(io.LimitReader(r, a.maxUploadBytes+1))
	if err != nil {
		return domain.PDFDocument{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > a.maxUploadBytes {
		return domain.PDFDocument{}, fmt.Errorf("%w: file exceeds %d MB limit", ErrValidation, a.maxUploadBytes>>20)
	}
	content, err := ingest.ExtractPDF(data)
	if err != nil {
		return domain.PDFDocument{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	storageKey := fmt.Sprintf("pdfs/%d/%s-%s", user.ID, util.NewID(), fileName)
	if err := a.objects.Put(ctx, storageKey, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		return domain.PDFDocument{}, fmt.Errorf("store pdf: %w", err)
	}

	doc, err := a.store.CreatePDF(domain.PDFDocument{
		UserID:     user.ID,
		FileName:   fileName,
		FileSize:   int64(len(data)),
		PageCount:  content.PageCount,
		StorageKey: storageKey,
		Content:    content.Text,
		Status:     domain.StatusPending,
	})
	if err != nil {
		// Do not leak the uploaded object when the row write fails.
		_ = a.objects.Delete(context.WithoutCancel(ctx), storageKey)
		return domain.PDFDocument{}, err
	}
	a.logger.Info("pdf uploaded", "pdf_id", doc.ID, "user_id", user.ID, "pages", doc.PageCount)
	return doc, nil
}

// GeneratePDFNotes produces study notes for an uploaded document. Semantics
// mirror GenerateVideoNotes: done returns stored notes, failed retries,
// processing refuses.
func (a *App) GeneratePDFNotes(ctx context.Context, user domain.User, id uint) (domain.PDFDocument, error) {
	doc, err := a.GetPDF(user, id)
	if err != nil {
		return domain.PDFDocument{}, err
	}
	switch doc.Status {
	case domain.StatusDone:
		return doc, nil
	case domain.StatusProcessing:
		return domain.PDFDocument{}, ErrGenerationInFlight
	}

	key := leaseKey(domain.KindPDF, doc.ID)
	ok, err := a.lease.Acquire(ctx, key, a.leaseTTL)
	if err != nil {
		return domain.PDFDocument{}, err
	}
	if !ok {
		return domain.PDFDocument{}, ErrGenerationInFlight
	}
	defer func() { _ = a.lease.Release(context.WithoutCancel(ctx), key) }()

	if err := a.store.SetPDFStatus(doc.ID, domain.StatusProcessing, ""); err != nil {
		return domain.PDFDocument{}, err
	}

	result, err := a.pipeline.Generate(ctx, notes.Source{
		Kind:  domain.KindPDF,
		Title: doc.FileName,
		Text:  doc.Content,
	})
	if err != nil {
		return domain.PDFDocument{}, a.failPDF(doc.ID, err)
	}
	if err := a.store.SetPDFNotes(doc.ID, result.Summary, result.KeyPoints, result.BulletNotes); err != nil {
		return domain.PDFDocument{}, err
	}
	if err := a.store.SetPDFStatus(doc.ID, domain.StatusDone, ""); err != nil {
		return domain.PDFDocument{}, err
	}
	a.logger.Info("pdf notes generated", "pdf_id", doc.ID, "user_id", user.ID)

	doc, _, err = a.store.GetPDF(doc.ID)
	return doc, err
}

func (a *App) failPDF(pdfID uint, cause error) error {
	reason := failureReason(cause)
	if err := a.store.SetPDFStatus(pdfID, domain.StatusFailed, reason); err != nil {
		a.logger.Error("mark pdf failed", "pdf_id", pdfID, "error", err)
	}
	a.logger.Warn("pdf generation failed", "pdf_id", pdfID, "reason", reason)
	return generationError(cause)
}

// GetPDF returns a document the user owns. Admins can read any document.
func (a *App) GetPDF(user domain.User, id uint) (domain.PDFDocument, error) {
	doc, found, err := a.store.GetPDF(id)
	if err != nil {
		return domain.PDFDocument{}, err
	}
	if !found {
		return domain.PDFDocument{}, ErrResourceNotFound
	}
	if doc.UserID != user.ID && !user.IsAdmin {
		return domain.PDFDocument{}, ErrForbidden
	}
	return doc, nil
}

// ListPDFs pages through the user's documents.
func (a *App) ListPDFs(user domain.User, opts store.ListOptions) ([]domain.PDFDocument, int, error) {
	opts.UserID = user.ID
	return a.store.ListPDFs(opts)
}

// DeletePDF removes the document, its chat history, and the stored original.
func (a *App) DeletePDF(ctx context.Context, user domain.User, id uint) error {
	doc, err := a.GetPDF(user, id)
	if err != nil {
		return err
	}
	if err := a.store.DeletePDF(doc.ID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := a.objects.Delete(ctx, doc.StorageKey); err != nil {
			a.logger.Error("delete pdf object", "pdf_id", doc.ID, "key", doc.StorageKey, "error", err)
		}
	}
	a.logger.Info("pdf deleted", "pdf_id", doc.ID, "user_id", user.ID)
	return nil
}
