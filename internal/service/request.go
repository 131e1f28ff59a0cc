package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reqdesk/internal/database"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

var tracer = otel.Tracer("reqdesk/internal/service")

// CreateRequestInput describes a new request.
type CreateRequestInput struct {
	RequestName   string
	StatusID      int64
	OwnerID       int64
	AttachmentIDs []int64
}

// UpdateRequestInput replaces name and status. An empty AttachmentIDs keeps the current set.
type UpdateRequestInput struct {
	RequestName   string
	StatusID      int64
	AttachmentIDs []int64
}

// RequestService is the request lifecycle manager.
type RequestService interface {
	// Create checks the owner's eligibility and the attachment floor before persisting.
	Create(ctx context.Context, in CreateRequestInput) (*RequestView, error)
	Get(ctx context.Context, id int64) (*RequestView, error)
	// ListByOwner returns every request of an active owner, whatever its status.
	ListByOwner(ctx context.Context, ownerID int64) ([]RequestView, error)
	// Update re-checks the current owner's eligibility. Status transitions are not restricted.
	Update(ctx context.Context, id int64, in UpdateRequestInput) (*RequestView, error)
	// Cancel forces CANCELLED without an eligibility check.
	Cancel(ctx context.Context, id int64) (*RequestView, error)
	// Delete removes the request and releases its attachments. Blobs stay in storage.
	Delete(ctx context.Context, id int64) error
}

type requestService struct {
	requests  repository.RequestRepository
	users     repository.UserRepository
	statuses  repository.StatusRepository
	gate      *EligibilityGate
	validator *CompositionValidator
	tx        database.Transactor
	now       func() time.Time
}

// RequestServiceDeps groups the collaborators of the request lifecycle manager.
type RequestServiceDeps struct {
	Requests  repository.RequestRepository
	Users     repository.UserRepository
	Statuses  repository.StatusRepository
	Gate      *EligibilityGate
	Validator *CompositionValidator
	Tx        database.Transactor
	// Now stamps createdAt and updatedAt. Defaults to time.Now.
	Now func() time.Time
}

// NewRequestService constructs a new RequestService.
func NewRequestService(d RequestServiceDeps) RequestService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &requestService{
		requests:  d.Requests,
		users:     d.Users,
		statuses:  d.Statuses,
		gate:      d.Gate,
		validator: d.Validator,
		tx:        d.Tx,
		now:       now,
	}
}

func (s *requestService) Create(ctx context.Context, in CreateRequestInput) (view *RequestView, err error) {
	ctx, span := tracer.Start(ctx, "RequestService.Create", trace.WithAttributes(
		attribute.Int64("request.owner_id", in.OwnerID),
		attribute.Int("request.attachment_count", len(in.AttachmentIDs)),
	))
	defer func() { endSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		owner, err := s.findUser(ctx, in.OwnerID)
		if err != nil {
			return err
		}
		if err := s.gate.Check(owner); err != nil {
			return err
		}
		status, err := s.findStatus(ctx, in.StatusID)
		if err != nil {
			return err
		}
		attachments, err := s.validator.Validate(ctx, 0, in.AttachmentIDs)
		if err != nil {
			return err
		}

		stamp := s.now().UTC()
		saved, err := s.requests.Save(ctx, &model.Request{
			RequestName: in.RequestName,
			Status:      *status,
			OwnerID:     owner.ID,
			Attachments: attachments,
			CreatedAt:   stamp,
			UpdatedAt:   stamp,
		})
		if err != nil {
			return saveErr(err, attachments)
		}
		v := toRequestView(saved, owner)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("request.id", view.ID))
	return view, nil
}

func (s *requestService) Get(ctx context.Context, id int64) (view *RequestView, err error) {
	ctx, span := tracer.Start(ctx, "RequestService.Get", trace.WithAttributes(attribute.Int64("request.id", id)))
	defer func() { endSpan(span, err) }()

	req, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.findUser(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	v := toRequestView(req, owner)
	return &v, nil
}

func (s *requestService) ListByOwner(ctx context.Context, ownerID int64) (views []RequestView, err error) {
	ctx, span := tracer.Start(ctx, "RequestService.ListByOwner", trace.WithAttributes(attribute.Int64("request.owner_id", ownerID)))
	defer func() { endSpan(span, err) }()

	ok, err := s.users.ExistsActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("check owner: %w", err)
	}
	if !ok {
		return nil, notFound("User", ownerID)
	}
	owner, err := s.findUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	items, err := s.requests.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	views = make([]RequestView, 0, len(items))
	for i := range items {
		views = append(views, toRequestView(&items[i], owner))
	}
	return views, nil
}

func (s *requestService) Update(ctx context.Context, id int64, in UpdateRequestInput) (view *RequestView, err error) {
	ctx, span := tracer.Start(ctx, "RequestService.Update", trace.WithAttributes(
		attribute.Int64("request.id", id),
		attribute.Int("request.attachment_count", len(in.AttachmentIDs)),
	))
	defer func() { endSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.findRequest(ctx, id)
		if err != nil {
			return err
		}
		owner, err := s.findUser(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		if err := s.gate.Check(owner); err != nil {
			return err
		}
		status, err := s.findStatus(ctx, in.StatusID)
		if err != nil {
			return err
		}

		req.RequestName = in.RequestName
		req.Status = *status
		if len(in.AttachmentIDs) > 0 {
			attachments, err := s.validator.Validate(ctx, req.ID, in.AttachmentIDs)
			if err != nil {
				return err
			}
			req.Attachments = attachments
		}
		req.UpdatedAt = s.now().UTC()

		saved, err := s.requests.Save(ctx, req)
		if err != nil {
			return saveErr(err, req.Attachments)
		}
		v := toRequestView(saved, owner)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *requestService) Cancel(ctx context.Context, id int64) (view *RequestView, err error) {
	ctx, span := tracer.Start(ctx, "RequestService.Cancel", trace.WithAttributes(attribute.Int64("request.id", id)))
	defer func() { endSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.findRequest(ctx, id)
		if err != nil {
			return err
		}
		cancelled, err := s.statuses.FindByName(ctx, model.StatusCancelled)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("Status", model.StatusCancelled)
			}
			return err
		}

		req.Status = *cancelled
		req.UpdatedAt = s.now().UTC()
		saved, err := s.requests.Save(ctx, req)
		if err != nil {
			return fmt.Errorf("save request: %w", err)
		}
		owner, err := s.findUser(ctx, saved.OwnerID)
		if err != nil {
			return err
		}
		v := toRequestView(saved, owner)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *requestService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "RequestService.Delete", trace.WithAttributes(attribute.Int64("request.id", id)))
	defer func() { endSpan(span, err) }()

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.findRequest(ctx, id); err != nil {
			return err
		}
		return s.requests.Delete(ctx, id)
	})
}

func (s *requestService) findRequest(ctx context.Context, id int64) (*model.Request, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Request", id)
		}
		return nil, err
	}
	return req, nil
}

// findUser resolves a user in any state. Eligibility is the gate's call.
func (s *requestService) findUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("User", id)
		}
		return nil, err
	}
	return u, nil
}

func (s *requestService) findStatus(ctx context.Context, id int64) (*model.Status, error) {
	st, err := s.statuses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Status", id)
		}
		return nil, err
	}
	return st, nil
}

// saveErr turns a membership conflict caught at write time into the same rejection the validator gives.
func saveErr(err error, attachments []model.Attachment) error {
	if errors.Is(err, repository.ErrAttachmentInUse) {
		ids := make([]int64, len(attachments))
		for i, a := range attachments {
			ids[i] = a.ID
		}
		return invalid(ReasonAttachmentInUse,
			map[string]any{"attachmentIds": ids},
			"Attachments %v were bound to another request concurrently", ids)
	}
	return fmt.Errorf("save request: %w", err)
}

// endSpan marks unexpected failures as span errors. Business outcomes are recorded as events only.
func endSpan(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBusinessValidation):
		span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
