package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dbMocks "reqdesk/internal/database/mocks"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
	repoMocks "reqdesk/internal/repository/mocks"
	"reqdesk/internal/status"
)

var (
	testNow   = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	testToday = model.NewDate(2026, time.October, 17)
)

type requestFixture struct {
	requests    *repoMocks.MockRequestRepository
	users       *repoMocks.MockUserRepository
	attachments *repoMocks.MockAttachmentRepository
	tx          *dbMocks.MockTransactor
	svc         RequestService
}

func newRequestFixture() *requestFixture {
	f := &requestFixture{
		requests:    new(repoMocks.MockRequestRepository),
		users:       new(repoMocks.MockUserRepository),
		attachments: new(repoMocks.MockAttachmentRepository),
		tx:          &dbMocks.MockTransactor{},
	}
	f.svc = NewRequestService(RequestServiceDeps{
		Requests:  f.requests,
		Users:     f.users,
		Statuses:  status.NewCatalog(),
		Gate:      NewEligibilityGate(time.UTC, fixedClock(testNow)),
		Validator: NewCompositionValidator(f.attachments, 2, false),
		Tx:        f.tx,
		Now:       fixedClock(testNow),
	})
	return f
}

func (f *requestFixture) assertExpectations(t *testing.T) {
	f.requests.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.attachments.AssertExpectations(t)
}

func owner(id int64, expiry model.Date, state model.UserState) *model.User {
	return &model.User{ID: id, Name: "Owner", CivilID: "C-1", ExpiryDate: expiry, State: state}
}

func existingRequest(id, ownerID int64, attachmentIDs ...int64) *model.Request {
	r := &model.Request{
		ID:          id,
		RequestName: "Renewal",
		Status:      model.Status{ID: 2, Name: model.StatusInProgress},
		OwnerID:     ownerID,
		CreatedAt:   testNow.Add(-48 * time.Hour),
		UpdatedAt:   testNow.Add(-48 * time.Hour),
	}
	for _, aid := range attachmentIDs {
		r.Attachments = append(r.Attachments, attachment(aid, id))
	}
	return r
}

func echoSaveRequest(_ context.Context, r *model.Request) *model.Request {
	out := *r
	if out.ID == 0 {
		out.ID = 100
	}
	return &out
}

func TestRequestService_Create(t *testing.T) {
	in := CreateRequestInput{RequestName: "Renewal", StatusID: 1, OwnerID: 1, AttachmentIDs: []int64{1, 2}}

	tests := []struct {
		name       string
		in         CreateRequestInput
		setupMocks func(f *requestFixture)
		wantNotFnd string
		wantReason Reason
		wantErr    string
		// persisted is true when Save is reached, whatever the outcome.
		persisted bool
	}{
		{
			name: "owner expiring today with two attachments",
			in:   in,
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{1, 2}).
					Return([]model.Attachment{attachment(1), attachment(2)}, nil)
				f.requests.On("Save", mock.Anything, mock.MatchedBy(func(r *model.Request) bool {
					return r.ID == 0 && r.OwnerID == 1 && r.Status.Name == model.StatusDraft &&
						len(r.Attachments) == 2 && r.CreatedAt.Equal(testNow) && r.UpdatedAt.Equal(testNow)
				})).Return(echoSaveRequest, nil)
			},
		},
		{
			name: "unknown owner",
			in:   in,
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(nil, sql.ErrNoRows)
			},
			wantNotFnd: "User not found with ID: 1",
		},
		{
			name: "owner expired yesterday",
			in:   in,
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday.AddDays(-1), model.UserActive), nil)
			},
			wantReason: ReasonCivilIDExpired,
		},
		{
			name: "retired owner",
			in:   in,
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday.AddDays(10), model.UserRetired), nil)
			},
			wantReason: ReasonCivilIDExpired,
		},
		{
			name: "unknown status",
			in:   CreateRequestInput{RequestName: "Renewal", StatusID: 99, OwnerID: 1, AttachmentIDs: []int64{1, 2}},
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
			},
			wantNotFnd: "Status not found with ID: 99",
		},
		{
			name: "single attachment",
			in:   CreateRequestInput{RequestName: "Renewal", StatusID: 1, OwnerID: 1, AttachmentIDs: []int64{1}},
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{1}).Return([]model.Attachment{attachment(1)}, nil)
			},
			wantReason: ReasonInsufficientAttachments,
		},
		{
			name: "second attachment does not resolve",
			in:   CreateRequestInput{RequestName: "Renewal", StatusID: 1, OwnerID: 1, AttachmentIDs: []int64{1, 404}},
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{1, 404}).Return([]model.Attachment{attachment(1)}, nil)
			},
			wantReason: ReasonInsufficientAttachments,
		},
		{
			name: "save failure",
			in:   in,
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{1, 2}).
					Return([]model.Attachment{attachment(1), attachment(2)}, nil)
				f.requests.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
			},
			wantErr:   "save request: boom",
			persisted: true,
		},
		{
			name: "attachments taken by a concurrent request",
			in:   in,
			setupMocks: func(f *requestFixture) {
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{1, 2}).
					Return([]model.Attachment{attachment(1), attachment(2)}, nil)
				f.requests.On("Save", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("bound 1 of 2 attachments: %w", repository.ErrAttachmentInUse))
			},
			wantReason: ReasonAttachmentInUse,
			persisted:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRequestFixture()
			tt.setupMocks(f)

			got, err := f.svc.Create(context.Background(), tt.in)

			switch {
			case tt.wantNotFnd != "":
				assert.ErrorIs(t, err, ErrNotFound)
				assert.EqualError(t, err, tt.wantNotFnd)
			case tt.wantReason != "":
				assert.ErrorIs(t, err, ErrBusinessValidation)
				assert.Equal(t, tt.wantReason, ReasonOf(err))
			case tt.wantErr != "":
				assert.EqualError(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(100), got.ID)
				assert.Equal(t, "DRAFT", got.Status)
				assert.Equal(t, int64(1), got.StatusID)
				assert.Equal(t, int64(1), got.Owner.ID)
				assert.Equal(t, []int64{1, 2}, got.AttachmentIDs)
			}
			if err != nil {
				assert.Nil(t, got)
				if !tt.persisted {
					f.requests.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
				}
			}
			assert.Equal(t, 1, f.tx.Calls)
			f.assertExpectations(t)
		})
	}
}

func TestRequestService_Get(t *testing.T) {
	f := newRequestFixture()
	f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
	f.requests.On("FindByID", mock.Anything, int64(11)).Return(nil, sql.ErrNoRows)
	f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)

	got, err := f.svc.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", got.Status)
	assert.Equal(t, []int64{3, 4}, got.AttachmentIDs)
	assert.Equal(t, "C-1", got.Owner.CivilID)

	_, err = f.svc.Get(context.Background(), 11)
	assert.EqualError(t, err, "Request not found with ID: 11")
}

func TestRequestService_ListByOwner(t *testing.T) {
	t.Run("active owner sees every status", func(t *testing.T) {
		f := newRequestFixture()
		cancelled := existingRequest(21, 1, 5, 6)
		cancelled.Status = model.Status{ID: 4, Name: model.StatusCancelled}
		f.users.On("ExistsActive", mock.Anything, int64(1)).Return(true, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
		f.requests.On("FindByOwnerID", mock.Anything, int64(1)).
			Return([]model.Request{*existingRequest(20, 1, 3, 4), *cancelled}, nil)

		got, err := f.svc.ListByOwner(context.Background(), 1)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "IN_PROGRESS", got[0].Status)
		assert.Equal(t, "CANCELLED", got[1].Status)
		f.assertExpectations(t)
	})

	t.Run("retired owner is not found even with stored requests", func(t *testing.T) {
		f := newRequestFixture()
		f.users.On("ExistsActive", mock.Anything, int64(1)).Return(false, nil)

		got, err := f.svc.ListByOwner(context.Background(), 1)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, got)
		f.requests.AssertNotCalled(t, "FindByOwnerID", mock.Anything, mock.Anything)
	})

	t.Run("no requests", func(t *testing.T) {
		f := newRequestFixture()
		f.users.On("ExistsActive", mock.Anything, int64(1)).Return(true, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
		f.requests.On("FindByOwnerID", mock.Anything, int64(1)).Return([]model.Request{}, nil)

		got, err := f.svc.ListByOwner(context.Background(), 1)

		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestRequestService_Update(t *testing.T) {
	tests := []struct {
		name       string
		in         UpdateRequestInput
		setupMocks func(f *requestFixture)
		wantIDs    []int64
		wantStatus string
		wantNotFnd bool
		wantReason Reason
	}{
		{
			name: "empty attachment list keeps the current set",
			in:   UpdateRequestInput{RequestName: "Renamed", StatusID: 5},
			setupMocks: func(f *requestFixture) {
				f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.requests.On("Save", mock.Anything, mock.MatchedBy(func(r *model.Request) bool {
					return r.RequestName == "Renamed" && r.UpdatedAt.Equal(testNow) && len(r.Attachments) == 2
				})).Return(echoSaveRequest, nil)
			},
			wantIDs:    []int64{3, 4},
			wantStatus: "SUBMITTED",
		},
		{
			name: "new list replaces the set",
			in:   UpdateRequestInput{RequestName: "Renewal", StatusID: 3, AttachmentIDs: []int64{7, 8}},
			setupMocks: func(f *requestFixture) {
				f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{7, 8}).
					Return([]model.Attachment{attachment(7), attachment(8)}, nil)
				f.requests.On("Save", mock.Anything, mock.Anything).Return(echoSaveRequest, nil)
			},
			wantIDs:    []int64{7, 8},
			wantStatus: "DONE",
		},
		{
			name: "owner expired after creation",
			in:   UpdateRequestInput{RequestName: "Renewal", StatusID: 3},
			setupMocks: func(f *requestFixture) {
				f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday.AddDays(-1), model.UserActive), nil)
			},
			wantReason: ReasonCivilIDExpired,
		},
		{
			name: "replacement list too short",
			in:   UpdateRequestInput{RequestName: "Renewal", StatusID: 3, AttachmentIDs: []int64{7}},
			setupMocks: func(f *requestFixture) {
				f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
				f.attachments.On("FindAllByID", mock.Anything, []int64{7}).Return([]model.Attachment{attachment(7)}, nil)
			},
			wantReason: ReasonInsufficientAttachments,
		},
		{
			name: "unknown request",
			in:   UpdateRequestInput{RequestName: "Renewal", StatusID: 3},
			setupMocks: func(f *requestFixture) {
				f.requests.On("FindByID", mock.Anything, int64(10)).Return(nil, sql.ErrNoRows)
			},
			wantNotFnd: true,
		},
		{
			name: "unknown status",
			in:   UpdateRequestInput{RequestName: "Renewal", StatusID: 42},
			setupMocks: func(f *requestFixture) {
				f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
				f.users.On("FindByID", mock.Anything, int64(1)).Return(owner(1, testToday, model.UserActive), nil)
			},
			wantNotFnd: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRequestFixture()
			tt.setupMocks(f)

			got, err := f.svc.Update(context.Background(), 10, tt.in)

			switch {
			case tt.wantNotFnd:
				assert.ErrorIs(t, err, ErrNotFound)
			case tt.wantReason != "":
				assert.Equal(t, tt.wantReason, ReasonOf(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantIDs, got.AttachmentIDs)
				assert.Equal(t, tt.wantStatus, got.Status)
				assert.Equal(t, testNow, got.UpdatedAt)
			}
			if err != nil {
				f.requests.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
			f.assertExpectations(t)
		})
	}
}

func TestRequestService_Cancel(t *testing.T) {
	t.Run("ineligible owner can still cancel", func(t *testing.T) {
		for _, o := range []*model.User{
			owner(1, testToday.AddDays(-30), model.UserActive),
			owner(1, testToday.AddDays(30), model.UserRetired),
		} {
			f := newRequestFixture()
			req := existingRequest(10, 1, 3, 4)
			req.Status = model.Status{ID: 3, Name: model.StatusDone}
			f.requests.On("FindByID", mock.Anything, int64(10)).Return(req, nil)
			f.requests.On("Save", mock.Anything, mock.MatchedBy(func(r *model.Request) bool {
				return r.Status.Name == model.StatusCancelled && r.Status.ID == 4
			})).Return(echoSaveRequest, nil)
			f.users.On("FindByID", mock.Anything, int64(1)).Return(o, nil)

			got, err := f.svc.Cancel(context.Background(), 10)

			require.NoError(t, err)
			assert.Equal(t, "CANCELLED", got.Status)
			assert.Equal(t, []int64{3, 4}, got.AttachmentIDs)
			f.assertExpectations(t)
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newRequestFixture()
		f.requests.On("FindByID", mock.Anything, int64(10)).Return(nil, sql.ErrNoRows)

		_, err := f.svc.Cancel(context.Background(), 10)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRequestService_Delete(t *testing.T) {
	t.Run("existing request", func(t *testing.T) {
		f := newRequestFixture()
		f.requests.On("FindByID", mock.Anything, int64(10)).Return(existingRequest(10, 1, 3, 4), nil)
		f.requests.On("Delete", mock.Anything, int64(10)).Return(nil)

		require.NoError(t, f.svc.Delete(context.Background(), 10))
		assert.Equal(t, 1, f.tx.Calls)
		f.assertExpectations(t)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newRequestFixture()
		f.requests.On("FindByID", mock.Anything, int64(10)).Return(nil, sql.ErrNoRows)

		err := f.svc.Delete(context.Background(), 10)

		assert.ErrorIs(t, err, ErrNotFound)
		f.requests.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
