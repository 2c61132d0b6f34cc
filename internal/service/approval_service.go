package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shopmaster/internal/metrics"
	"shopmaster/internal/model"
	"shopmaster/internal/notify"
	"shopmaster/internal/repository"
	"shopmaster/internal/tracing"
	ws "shopmaster/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// --- Collaborators ---

// AdminNotifier queues a notice about a new pending request. It must not block.
type AdminNotifier interface {
	Enqueue(msg notify.Message) bool
}

// ChangePublisher tells connected clients that a collection changed.
type ChangePublisher interface {
	Publish(ev ws.Event)
}

// --- DTOs ---

// SubmitEditRequestDTO is the wire form of a proposed edit.
type SubmitEditRequestDTO struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Field      string          `json:"field"`
	OldValue   model.JSONValue `json:"old_value"`
	NewValue   model.JSONValue `json:"new_value"`
	Reason     string          `json:"reason"`
}

// Input decodes the raw values into the change shape the field expects.
func (d SubmitEditRequestDTO) Input() (SubmitEditRequestInput, error) {
	entityType := model.EntityType(strings.ToUpper(strings.TrimSpace(d.EntityType)))
	if !entityType.Valid() {
		return SubmitEditRequestInput{}, invalid("entity_type", "must be SALE or CUSTOMER")
	}
	entityID, err := uuid.Parse(strings.TrimSpace(d.EntityID))
	if err != nil {
		return SubmitEditRequestInput{}, invalid("entity_id", "must be a UUID")
	}
	field := normalizeField(d.Field)
	change, err := model.DecodeChange(entityType, field, d.OldValue, d.NewValue)
	if err != nil {
		return SubmitEditRequestInput{}, invalid("new_value", "%v", err)
	}
	return SubmitEditRequestInput{
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Change:     change,
		Reason:     d.Reason,
	}, nil
}

type SubmitEditRequestInput struct {
	EntityType model.EntityType `json:"entity_type" validate:"required,oneof=SALE CUSTOMER"`
	EntityID   uuid.UUID        `json:"entity_id" validate:"required"`
	Field      string           `json:"field" validate:"required,max=50"`
	Change     model.Change     `json:"-" validate:"required"`
	Reason     string           `json:"reason" validate:"required"`
}

// SubmitResult is either a new pending request or, for owners, the entry applied directly.
type SubmitResult struct {
	Request *model.EditRequest `json:"request,omitempty"`
	Applied bool               `json:"applied"`
	Entry   *model.AuditEntry  `json:"entry,omitempty"`
}

type EditRequestFilter struct {
	Status     model.EditStatus
	EntityType model.EntityType
	EntityID   *uuid.UUID
	Page       int
	Limit      int
}

// --- Interface ---

type ApprovalService interface {
	SubmitEditRequest(ctx context.Context, actor Actor, in SubmitEditRequestInput) (SubmitResult, error)
	Approve(ctx context.Context, requestID uuid.UUID, reviewer Actor) (*model.EditRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, reviewer Actor) (*model.EditRequest, error)
	ListPending(ctx context.Context) ([]model.EditRequest, error)
	ListRequests(ctx context.Context, filter EditRequestFilter) ([]model.EditRequest, int64, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*model.EditRequest, error)
	History(ctx context.Context, entityType model.EntityType, entityID uuid.UUID) (model.AuditHistory, error)
}

// ApprovalDeps wires the approval workflow. Notifier, Events, Logger and Now are optional.
type ApprovalDeps struct {
	Tx        repository.TransactionManager
	Requests  repository.EditRequestRepository
	Sales     repository.SaleRepository
	Customers repository.CustomerRepository
	Activity  repository.ActivityRepository
	Notifier  AdminNotifier
	Events    ChangePublisher
	Logger    *slog.Logger
	// StrictRevisions rejects approvals when the record changed after the request was filed.
	StrictRevisions bool
	Now             func() time.Time
}

type approvalService struct {
	tx        repository.TransactionManager
	requests  repository.EditRequestRepository
	sales     repository.SaleRepository
	customers repository.CustomerRepository
	activity  repository.ActivityRepository
	notifier  AdminNotifier
	events    ChangePublisher
	logger    *slog.Logger
	validate  *validator.Validate
	strict    bool
	now       func() time.Time
}

func NewApprovalService(deps ApprovalDeps) ApprovalService {
	s := &approvalService{
		tx:        deps.Tx,
		requests:  deps.Requests,
		sales:     deps.Sales,
		customers: deps.Customers,
		activity:  deps.Activity,
		notifier:  deps.Notifier,
		events:    deps.Events,
		logger:    deps.Logger,
		validate:  newValidator(),
		strict:    deps.StrictRevisions,
		now:       deps.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// --- Implementation ---

func (s *approvalService) SubmitEditRequest(ctx context.Context, actor Actor, in SubmitEditRequestInput) (res SubmitResult, err error) {
	ctx, span := tracing.Start(ctx, "approval.submit",
		attribute.String("entity_type", string(in.EntityType)),
		attribute.String("field", in.Field))
	defer func() { tracing.End(span, err) }()

	in.Field = normalizeField(in.Field)
	if err := s.validateSubmit(actor, in); err != nil {
		return SubmitResult{}, err
	}

	if actor.IsOwner() {
		res, err = s.applyDirect(ctx, actor, in)
	} else {
		res, err = s.fileRequest(ctx, actor, in)
	}
	if err != nil {
		metrics.RecordEdit(string(in.EntityType), metrics.OutcomeFailed)
		return SubmitResult{}, err
	}
	return res, nil
}

func (s *approvalService) validateSubmit(actor Actor, in SubmitEditRequestInput) error {
	if strings.TrimSpace(actor.Name) == "" {
		return invalid("actor", "must be named")
	}
	if err := s.validate.Struct(in); err != nil {
		return validationFrom(err)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return invalid("reason", "must not be blank")
	}
	return checkChange(in.EntityType, in.Field, in.Change)
}

// checkChange verifies that the change has the right shape for the field and that the
// proposed value would be accepted by it.
func checkChange(entityType model.EntityType, field string, ch model.Change) error {
	switch entityType {
	case model.EntitySale:
		if field == model.FieldLedgerEntry {
			lc, ok := ch.(model.LedgerChange)
			if !ok {
				return invalid("new_value", "ledger_entry takes a ledger correction")
			}
			if lc.New.IsEmpty() {
				return invalid("new_value", "ledger correction proposes no change")
			}
			if (lc.New.TotalAmount != nil && lc.New.TotalAmount.IsNegative()) ||
				(lc.New.PaidAmount != nil && lc.New.PaidAmount.IsNegative()) {
				return invalid("new_value", "amounts must not be negative")
			}
			return nil
		}
		spec, ok := saleFields[field]
		if !ok {
			return invalid("field", "%q is not an editable sale field", field)
		}
		return checkScalar(spec, field, ch)
	case model.EntityCustomer:
		spec, ok := customerFields[field]
		if !ok {
			return invalid("field", "%q is not an editable customer field", field)
		}
		return checkScalar(spec, field, ch)
	}
	return invalid("entity_type", "must be SALE or CUSTOMER")
}

func checkScalar[T any](spec fieldSpec[T], field string, ch model.Change) error {
	sc, ok := ch.(model.ScalarChange)
	if !ok {
		return invalid("new_value", "%s takes a single value", field)
	}
	if sc.New.IsAbsent() {
		return invalid("new_value", "is required")
	}
	if sc.New.Text != nil && *sc.New.Text == model.RedactedImage {
		return nil
	}
	var scratch T
	if err := spec.set(&scratch, sc.New); err != nil {
		return invalid(field, "%v", err)
	}
	return nil
}

// applyDirect merges an owner's edit immediately; no request row is created.
func (s *approvalService) applyDirect(ctx context.Context, actor Actor, in SubmitEditRequestInput) (SubmitResult, error) {
	var entry *model.AuditEntry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		tgt, err := s.loadTarget(txCtx, in.EntityType, in.EntityID, true)
		if err != nil {
			return err
		}
		change := tgt.withCurrentOld(in.Field, in.Change)
		applied, err := tgt.merge(in.Field, change)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		e, err := newAuditEntry(in.Field, change, in.Reason, actor.Name, actor.Name, s.now())
		if err != nil {
			return err
		}
		tgt.record(e)
		if err := tgt.save(txCtx); err != nil {
			return &StoreError{Op: "save " + entityKind(in.EntityType), Err: err}
		}
		entry = &e

		return s.logActivity(txCtx, actor, model.ActionDirectEdit, in.EntityType, in.EntityID.String(), map[string]interface{}{
			"field":  in.Field,
			"reason": in.Reason,
		})
	})
	if err != nil {
		return SubmitResult{}, err
	}

	if entry != nil {
		metrics.RecordEdit(string(in.EntityType), metrics.OutcomeAppliedDirect)
		s.publish(collectionFor(in.EntityType), ws.ActionUpdated, in.EntityID.String())
		s.logger.Info("edit applied directly",
			"entity_type", in.EntityType, "entity_id", in.EntityID, "field", in.Field, "actor", actor.Name)
	}
	return SubmitResult{Applied: entry != nil, Entry: entry}, nil
}

// fileRequest stores a PENDING request for an owner to review.
func (s *approvalService) fileRequest(ctx context.Context, actor Actor, in SubmitEditRequestInput) (SubmitResult, error) {
	req := &model.EditRequest{
		ID:            uuid.New(),
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		Field:         in.Field,
		Reason:        in.Reason,
		RequestedBy:   actor.Name,
		RequestedByID: actor.idPtr(),
		Status:        model.EditPending,
		CreatedAt:     s.now(),
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		tgt, err := s.loadTarget(txCtx, in.EntityType, in.EntityID, false)
		if err != nil {
			return err
		}
		change := redactChange(tgt.withCurrentOld(in.Field, in.Change))
		if req.OldValue, req.NewValue, err = model.EncodeChange(change); err != nil {
			return fmt.Errorf("failed to encode edit values: %w", err)
		}
		req.BaseRevision = tgt.revision()

		if err := s.requests.Create(txCtx, req); err != nil {
			return &StoreError{Op: "create edit request", Err: err}
		}
		return s.logActivity(txCtx, actor, model.ActionSubmitEditRequest, in.EntityType, req.ID.String(), map[string]interface{}{
			"entity_id": in.EntityID.String(),
			"field":     in.Field,
			"reason":    in.Reason,
		})
	})
	if err != nil {
		return SubmitResult{}, err
	}

	metrics.RecordEdit(string(in.EntityType), metrics.OutcomeSubmitted)
	s.publish(ws.CollectionEditRequests, ws.ActionCreated, req.ID.String())
	if s.notifier != nil {
		s.notifier.Enqueue(notify.Message{
			RequestID:   req.ID.String(),
			EntityType:  string(req.EntityType),
			EntityID:    req.EntityID.String(),
			Field:       req.Field,
			RequestedBy: req.RequestedBy,
			Reason:      req.Reason,
		})
	}
	s.logger.Info("edit request submitted",
		"request_id", req.ID, "entity_type", req.EntityType, "entity_id", req.EntityID, "actor", actor.Name)

	return SubmitResult{Request: req}, nil
}

func (s *approvalService) Approve(ctx context.Context, requestID uuid.UUID, reviewer Actor) (_ *model.EditRequest, err error) {
	ctx, span := tracing.Start(ctx, "approval.approve", attribute.String("request_id", requestID.String()))
	defer func() { tracing.End(span, err) }()

	if err := requireOwner(reviewer, "approve edit requests"); err != nil {
		return nil, err
	}

	var req *model.EditRequest
	kind := "UNKNOWN"
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.lockPending(txCtx, requestID)
		if err != nil {
			return err
		}
		kind = string(r.EntityType)
		change, err := r.Change()
		if err != nil {
			return fmt.Errorf("failed to decode edit request %s: %w", r.ID, err)
		}
		// Rows filed before a rule tightened stay pending until rejected.
		if err := checkChange(r.EntityType, r.Field, change); err != nil {
			return err
		}

		tgt, err := s.loadTarget(txCtx, r.EntityType, r.EntityID, true)
		if err != nil {
			return err
		}
		if s.strict && tgt.revision() != r.BaseRevision {
			return fmt.Errorf("%w: %s %s changed since the request was filed", ErrConflict, entityKind(r.EntityType), r.EntityID)
		}

		now := s.now()
		applied, err := tgt.merge(r.Field, change)
		if err != nil {
			return err
		}
		if applied {
			e, err := newAuditEntry(r.Field, change, r.Reason, r.RequestedBy, reviewer.Name, now)
			if err != nil {
				return err
			}
			tgt.record(e)
			if err := tgt.save(txCtx); err != nil {
				return &StoreError{Op: "save " + entityKind(r.EntityType), Err: err}
			}
		}

		if err := s.transition(txCtx, r, model.EditApproved, reviewer, now); err != nil {
			return err
		}
		req = r
		return s.logActivity(txCtx, reviewer, model.ActionApproveEdit, r.EntityType, r.ID.String(), map[string]interface{}{
			"entity_id":    r.EntityID.String(),
			"field":        r.Field,
			"requested_by": r.RequestedBy,
		})
	})
	if err != nil {
		if !errors.Is(err, ErrNotPending) && !errors.Is(err, ErrNotFound) {
			metrics.RecordEdit(kind, metrics.OutcomeFailed)
		}
		return nil, err
	}

	metrics.RecordEdit(string(req.EntityType), metrics.OutcomeApproved)
	s.publish(ws.CollectionEditRequests, ws.ActionApproved, req.ID.String())
	s.publish(collectionFor(req.EntityType), ws.ActionUpdated, req.EntityID.String())
	s.logger.Info("edit request approved",
		"request_id", req.ID, "entity_type", req.EntityType, "entity_id", req.EntityID, "actor", reviewer.Name)
	return req, nil
}

func (s *approvalService) Reject(ctx context.Context, requestID uuid.UUID, reviewer Actor) (_ *model.EditRequest, err error) {
	ctx, span := tracing.Start(ctx, "approval.reject", attribute.String("request_id", requestID.String()))
	defer func() { tracing.End(span, err) }()

	if err := requireOwner(reviewer, "reject edit requests"); err != nil {
		return nil, err
	}

	var req *model.EditRequest
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.lockPending(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := s.transition(txCtx, r, model.EditRejected, reviewer, s.now()); err != nil {
			return err
		}
		req = r
		return s.logActivity(txCtx, reviewer, model.ActionRejectEdit, r.EntityType, r.ID.String(), map[string]interface{}{
			"entity_id":    r.EntityID.String(),
			"field":        r.Field,
			"requested_by": r.RequestedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEdit(string(req.EntityType), metrics.OutcomeRejected)
	s.publish(ws.CollectionEditRequests, ws.ActionRejected, req.ID.String())
	s.logger.Info("edit request rejected",
		"request_id", req.ID, "entity_type", req.EntityType, "entity_id", req.EntityID, "actor", reviewer.Name)
	return req, nil
}

func (s *approvalService) ListPending(ctx context.Context) ([]model.EditRequest, error) {
	reqs, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list pending edit requests", Err: err}
	}
	metrics.PendingRequests.Set(float64(len(reqs)))
	return reqs, nil
}

func (s *approvalService) ListRequests(ctx context.Context, filter EditRequestFilter) ([]model.EditRequest, int64, error) {
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	reqs, total, err := s.requests.List(ctx, repository.EditRequestFilter{
		Status:     filter.Status,
		EntityType: filter.EntityType,
		EntityID:   filter.EntityID,
	}, page, limit)
	if err != nil {
		return nil, 0, &StoreError{Op: "list edit requests", Err: err}
	}
	return reqs, total, nil
}

func (s *approvalService) GetRequest(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("load edit request", "edit request", id, err)
	}
	return req, nil
}

func (s *approvalService) History(ctx context.Context, entityType model.EntityType, entityID uuid.UUID) (model.AuditHistory, error) {
	tgt, err := s.loadTarget(ctx, entityType, entityID, false)
	if err != nil {
		return nil, err
	}
	h := tgt.history()
	if h == nil {
		h = model.AuditHistory{}
	}
	return h, nil
}

// --- Helpers ---

func (s *approvalService) lockPending(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	r, err := s.requests.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, storeErr("load edit request", "edit request", id, err)
	}
	if !r.IsPending() {
		s.logger.Warn("edit request already decided", "request_id", id, "status", r.Status)
		return nil, fmt.Errorf("%w: request %s is already %s", ErrNotPending, id, r.Status)
	}
	return r, nil
}

func (s *approvalService) transition(ctx context.Context, r *model.EditRequest, to model.EditStatus, reviewer Actor, at time.Time) error {
	if err := s.requests.Transition(ctx, r.ID, to, reviewer.Name, at); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return fmt.Errorf("%w: request %s was decided concurrently", ErrNotPending, r.ID)
		}
		return &StoreError{Op: "update edit request", Err: err}
	}
	r.Status = to
	r.ReviewedBy = reviewer.Name
	r.ReviewTimestamp = &at
	return nil
}

func (s *approvalService) loadTarget(ctx context.Context, entityType model.EntityType, id uuid.UUID, lock bool) (editTarget, error) {
	switch entityType {
	case model.EntitySale:
		find := s.sales.FindByID
		if lock {
			find = s.sales.FindByIDForUpdate
		}
		sale, err := find(ctx, id)
		if err != nil {
			return nil, storeErr("load sale", "sale", id, err)
		}
		return &saleTarget{sale: sale, repo: s.sales}, nil
	case model.EntityCustomer:
		find := s.customers.FindByID
		if lock {
			find = s.customers.FindByIDForUpdate
		}
		customer, err := find(ctx, id)
		if err != nil {
			return nil, storeErr("load customer", "customer", id, err)
		}
		return &customerTarget{customer: customer, repo: s.customers}, nil
	}
	return nil, invalid("entity_type", "must be SALE or CUSTOMER")
}

func (s *approvalService) logActivity(ctx context.Context, actor Actor, action string, entityType model.EntityType, entityID string, details map[string]interface{}) error {
	return writeActivity(ctx, s.activity, actor, action, string(entityType), entityID, details)
}

func (s *approvalService) publish(collection, action, id string) {
	if s.events != nil {
		s.events.Publish(ws.Event{Collection: collection, Action: action, ID: id})
	}
}

func collectionFor(t model.EntityType) string {
	if t == model.EntitySale {
		return ws.CollectionSales
	}
	return ws.CollectionCustomers
}

func entityKind(t model.EntityType) string {
	return strings.ToLower(string(t))
}
