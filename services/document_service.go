package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/policy"
	"proposal-management-api/repositories"
	"proposal-management-api/storage"
	"proposal-management-api/utils"
)

// UploadInput describes one attachment upload.
type UploadInput struct {
	DocumentType string `json:"document_type" validate:"required,max=50"`
	Filename     string `json:"filename" validate:"required,max=255"`
}

type DocumentService struct {
	store  repositories.Store
	files  storage.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

func NewDocumentService(store repositories.Store, files storage.DocumentStore, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		store:  defaultStore(store),
		files:  files,
		logger: defaultLogger(logger, "documents"),
		now:    time.Now,
	}
}

func storageError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.ValidationFields(op, map[string]string{"file": "max_size"})
	case errors.Is(err, storage.ErrTypeNotAllowed):
		return apperrors.ValidationFields(op, map[string]string{"file": "file_type"})
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NotFound(op, "document file")
	default:
		return apperrors.Internal(op, err)
	}
}

// editableSubject loads a proposal whose content the actor may change now.
func editableSubject(ctx context.Context, store repositories.Store, a policy.Actor, proposalID uint, op string) (policy.Subject, error) {
	subj, err := loadSubject(ctx, store, proposalID)
	if err != nil {
		return subj, err
	}
	if err := policy.CanEdit(a, subj).Err(op); err != nil {
		return subj, err
	}
	if !subj.Proposal.Status.IsEditable() {
		return subj, apperrors.InvalidState(op, "attachments of a %s proposal cannot change", subj.Proposal.Status)
	}
	return subj, nil
}

// Upload stores the bytes first and then the metadata row; the file is
// removed again if the row cannot be written.
func (s *DocumentService) Upload(ctx context.Context, a policy.Actor, proposalID uint, in UploadInput, r io.Reader) (*models.ProposalDocument, error) {
	const op = "documents.upload"
	in.DocumentType = utils.SanitizeInput(in.DocumentType)
	in.Filename = filepath.Base(utils.SanitizeInput(in.Filename))
	if err := utils.ValidateStruct(op, in); err != nil {
		return nil, err
	}
	if _, err := editableSubject(ctx, s.store, a, proposalID, op); err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load proposal", zap.Uint("proposal_id", proposalID))
	}

	saved, err := s.files.Save(ctx, proposalID, in.Filename, r)
	if err != nil {
		return nil, logUnexpected(s.logger, storageError(op, err), "failed to store file",
			zap.Uint("proposal_id", proposalID), zap.String("filename", in.Filename))
	}

	doc := &models.ProposalDocument{
		ProposalID:       proposalID,
		DocumentType:     strings.ToLower(in.DocumentType),
		UploadedBy:       a.ID,
		OriginalFilename: in.Filename,
		StoredKey:        saved.Key,
		MimeType:         saved.MimeType,
		FileSize:         saved.Size,
		UploadedAt:       s.now(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if rmErr := s.files.Delete(persistentContext(ctx), saved.Key); rmErr != nil {
			s.logger.Warn("failed to remove orphaned file", zap.String("key", saved.Key), zap.Error(rmErr))
		}
		return nil, logUnexpected(s.logger, err, "failed to save document", zap.Uint("proposal_id", proposalID))
	}

	s.logger.Info("document uploaded",
		zap.Uint("document_id", doc.DocumentID),
		zap.Uint("proposal_id", proposalID),
		zap.String("mime_type", doc.MimeType),
		zap.Float64("size_mb", doc.GetFileSizeInMB()))
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, a policy.Actor, proposalID uint) ([]models.ProposalDocument, error) {
	if _, err := visibleSubject(ctx, s.store, a, proposalID, "documents.list"); err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load proposal", zap.Uint("proposal_id", proposalID))
	}
	rows, err := s.store.ListDocuments(ctx, proposalID)
	return rows, logUnexpected(s.logger, err, "failed to list documents", zap.Uint("proposal_id", proposalID))
}

// Download opens a document of a visible proposal. The caller closes the reader.
func (s *DocumentService) Download(ctx context.Context, a policy.Actor, documentID uint) (*models.ProposalDocument, io.ReadCloser, error) {
	const op = "documents.download"
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, logUnexpected(s.logger, err, "failed to load document", zap.Uint("document_id", documentID))
	}
	if _, err := visibleSubject(ctx, s.store, a, doc.ProposalID, op); err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, nil, apperrors.NotFound(op, "document")
		}
		return nil, nil, logUnexpected(s.logger, err, "failed to load proposal", zap.Uint("proposal_id", doc.ProposalID))
	}
	rc, err := s.files.Open(ctx, doc.StoredKey)
	if err != nil {
		return nil, nil, logUnexpected(s.logger, storageError(op, err), "failed to open file", zap.String("key", doc.StoredKey))
	}
	return doc, rc, nil
}

// Delete removes the metadata row, then the bytes on a best-effort basis.
func (s *DocumentService) Delete(ctx context.Context, a policy.Actor, documentID uint) error {
	const op = "documents.delete"
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return logUnexpected(s.logger, err, "failed to load document", zap.Uint("document_id", documentID))
	}
	if _, err := editableSubject(ctx, s.store, a, doc.ProposalID, op); err != nil {
		return logUnexpected(s.logger, err, "failed to load proposal", zap.Uint("proposal_id", doc.ProposalID))
	}
	if err := s.store.DeleteDocument(ctx, doc); err != nil {
		return logUnexpected(s.logger, err, "failed to delete document", zap.Uint("document_id", documentID))
	}
	if err := s.files.Delete(persistentContext(ctx), doc.StoredKey); err != nil {
		s.logger.Warn("failed to remove file", zap.String("key", doc.StoredKey), zap.Error(err))
	}
	return nil
}
