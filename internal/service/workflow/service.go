package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
	apperrors "github.com/agilpa/solicitation-api/pkg/errors"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/metrics"
)

// Process number prefixes per originating module.
const (
	prefixFundsSupply   = "TJPA-SF"
	prefixTravel        = "TJPA-DPA"
	prefixReimbursement = "TJPA-RES"
)

// storeTimeout bounds every write against the durable store so no
// transition blocks indefinitely.
const storeTimeout = 10 * time.Second

// Txer is the slice of BaseRepository the service needs to run the
// status update, history row and outbox insert in one transaction.
type Txer interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type Service struct {
	solicitations repository.SolicitationRepository
	tasks         repository.SigningTaskRepository
	history       repository.HistoryRepository
	outbox        repository.OutboxRepository
	txer          Txer
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	solicitations repository.SolicitationRepository,
	tasks repository.SigningTaskRepository,
	history repository.HistoryRepository,
	outbox repository.OutboxRepository,
	txer Txer,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		solicitations: solicitations,
		tasks:         tasks,
		history:       history,
		outbox:        outbox,
		txer:          txer,
		logger:        log,
		metrics:       m,
	}
}

// Create registers a new solicitation at the first stage of its request
// type's pipeline and assigns the process number.
func (s *Service) Create(ctx context.Context, req *model.CreateSolicitationRequest) (*model.Solicitation, error) {
	initial, ok := InitialStatus(req.RequestType)
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown request type %s", req.RequestType), nil)
	}
	if req.Value.IsNegative() {
		return nil, apperrors.BadRequest("value must not be negative", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	seq, err := s.solicitations.NextProcessSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate process number: %w", err)
	}

	sol := &model.Solicitation{
		ProcessNumber: processNumber(req.RequestType, seq),
		RequestType:   req.RequestType,
		OriginUnit:    req.OriginUnit,
		Beneficiary:   req.Beneficiary,
		RequesterID:   req.RequesterID,
		Value:         req.Value,
		Status:        initial,
	}
	if err := s.solicitations.Create(ctx, sol); err != nil {
		return nil, fmt.Errorf("failed to create solicitation: %w", err)
	}

	s.logger.Info("solicitation created",
		"process_number", sol.ProcessNumber,
		"request_type", string(sol.RequestType))
	return sol, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Solicitation, error) {
	return s.solicitations.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.SolicitationFilters) ([]*model.Solicitation, error) {
	return s.solicitations.Query(ctx, filters)
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*model.TramitationRecord, error) {
	return s.history.ListBySolicitation(ctx, id)
}

func (s *Service) Tasks(ctx context.Context, id uuid.UUID) ([]*model.SigningTask, error) {
	return s.tasks.QueryBySolicitation(ctx, id)
}

// Transition moves a solicitation to target if target directly follows
// the current status in its request type's pipeline. Leaving a
// signature-gated stage additionally requires every pending or rejected
// signing task to be resolved; superseded tasks do not count.
// The status write, history row and notification event commit
// together; a concurrent writer loses with StaleState.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target model.SolicitationStatus, actor string) (*model.Solicitation, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sol, err := s.solicitations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Resubmission after rejection goes back to the recorded return
	// target; everything else follows the pipeline edges.
	if sol.Status == model.StatusRejected {
		if sol.ReturnStatus == nil || *sol.ReturnStatus != target {
			s.metrics.TransitionFailures.WithLabelValues("illegal").Inc()
			return nil, apperrors.IllegalTransition(string(sol.Status), string(target))
		}
	} else if !Successor(sol.RequestType, sol.Status, target) {
		s.metrics.TransitionFailures.WithLabelValues("illegal").Inc()
		return nil, apperrors.IllegalTransition(string(sol.Status), string(target))
	}
	if target == model.StatusArchived {
		// Archival carries terminal fields and goes through Archive.
		s.metrics.TransitionFailures.WithLabelValues("illegal").Inc()
		return nil, apperrors.IllegalTransition(string(sol.Status), string(target))
	}

	if SignatureGated(sol.Status) {
		if err := s.checkSignatureGate(ctx, sol.ID); err != nil {
			s.metrics.TransitionFailures.WithLabelValues("signature_gate").Inc()
			return nil, err
		}
	}

	update := &model.StatusUpdate{Status: target}
	event := &model.WorkflowEvent{
		Kind:           model.EventTransitioned,
		SolicitationID: sol.ID,
		ProcessNumber:  sol.ProcessNumber,
		RequesterID:    sol.RequesterID,
		FromStatus:     sol.Status,
		ToStatus:       target,
		Actor:          actor,
		OccurredAt:     time.Now(),
	}

	err = s.txer.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.solicitations.UpdateStatus(ctx, tx, sol.ID, update, sol.Version); err != nil {
			return err
		}
		if err := s.history.Create(ctx, tx, &model.TramitationRecord{
			SolicitationID: sol.ID,
			StatusFrom:     sol.Status,
			StatusTo:       target,
			ActorName:      actor,
			Description:    fmt.Sprintf("Processo tramitado de %s para %s", sol.Status, target),
		}); err != nil {
			return err
		}
		if docs := DocumentsFor(sol.Status); len(docs) > 0 {
			if err := s.openSigningTasks(ctx, tx, sol, docs); err != nil {
				return err
			}
		}
		return s.enqueueEvent(ctx, tx, event)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrStaleState) {
			s.metrics.TransitionFailures.WithLabelValues("stale").Inc()
		}
		return nil, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(sol.Status), string(target)).Inc()
	s.logger.Info("solicitation transitioned",
		"process_number", sol.ProcessNumber,
		"from", string(sol.Status),
		"to", string(target))

	return s.solicitations.Get(ctx, sol.ID)
}

// Reject moves the solicitation to REJECTED, recording the reason and
// the analysis state it returns to on resubmission.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason, actor string) (*model.Solicitation, error) {
	if reason == "" {
		return nil, apperrors.BadRequest("rejection reason is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sol, err := s.solicitations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Rejectable(sol.Status) {
		s.metrics.TransitionFailures.WithLabelValues("illegal").Inc()
		return nil, apperrors.IllegalTransition(string(sol.Status), string(model.StatusRejected))
	}

	returnTarget := ReturnTarget(sol.RequestType, sol.Status)
	update := &model.StatusUpdate{
		Status:       model.StatusRejected,
		ReturnStatus: &returnTarget,
		RejectReason: &reason,
	}
	event := &model.WorkflowEvent{
		Kind:           model.EventRejected,
		SolicitationID: sol.ID,
		ProcessNumber:  sol.ProcessNumber,
		RequesterID:    sol.RequesterID,
		FromStatus:     sol.Status,
		ToStatus:       model.StatusRejected,
		Actor:          actor,
		Reason:         reason,
		OccurredAt:     time.Now(),
	}

	err = s.txer.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.solicitations.UpdateStatus(ctx, tx, sol.ID, update, sol.Version); err != nil {
			return err
		}
		if err := s.history.Create(ctx, tx, &model.TramitationRecord{
			SolicitationID: sol.ID,
			StatusFrom:     sol.Status,
			StatusTo:       model.StatusRejected,
			ActorName:      actor,
			Description:    fmt.Sprintf("Processo devolvido: %s", reason),
		}); err != nil {
			return err
		}
		return s.enqueueEvent(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(sol.Status), string(model.StatusRejected)).Inc()
	return s.solicitations.Get(ctx, sol.ID)
}

// Archive closes the process: only legal from a payment-terminal state,
// and sets status, nl_siafe and data_baixa in one write. Archiving an
// already-archived solicitation with identical terminal fields is a
// no-op returning the terminal state.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, nlSiafe string, dataBaixa time.Time, actor string) (*model.Solicitation, error) {
	if nlSiafe == "" {
		return nil, apperrors.BadRequest("nl_siafe is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sol, err := s.solicitations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sol.Status == model.StatusArchived {
		if sol.NLSiafe != nil && *sol.NLSiafe == nlSiafe {
			return sol, nil
		}
		return nil, apperrors.NotReadyForArchive(string(sol.Status))
	}
	if !Archivable(sol.Status) {
		return nil, apperrors.NotReadyForArchive(string(sol.Status))
	}

	update := &model.StatusUpdate{
		Status:    model.StatusArchived,
		NLSiafe:   &nlSiafe,
		DataBaixa: &dataBaixa,
	}
	event := &model.WorkflowEvent{
		Kind:           model.EventArchived,
		SolicitationID: sol.ID,
		ProcessNumber:  sol.ProcessNumber,
		RequesterID:    sol.RequesterID,
		FromStatus:     sol.Status,
		ToStatus:       model.StatusArchived,
		Actor:          actor,
		OccurredAt:     time.Now(),
	}

	err = s.txer.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.solicitations.UpdateStatus(ctx, tx, sol.ID, update, sol.Version); err != nil {
			return err
		}
		if err := s.history.Create(ctx, tx, &model.TramitationRecord{
			SolicitationID: sol.ID,
			StatusFrom:     sol.Status,
			StatusTo:       model.StatusArchived,
			ActorName:      actor,
			Description:    fmt.Sprintf("Processo arquivado. NL SIAFE %s", nlSiafe),
		}); err != nil {
			return err
		}
		return s.enqueueEvent(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(sol.Status), string(model.StatusArchived)).Inc()
	return s.solicitations.Get(ctx, sol.ID)
}

// SignTask resolves one signing task as SIGNED. Exactly one of two
// concurrent signers wins; the loser gets AlreadyResolved.
func (s *Service) SignTask(ctx context.Context, taskID, actor uuid.UUID, actorName string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Resolve(ctx, taskID, model.SigningTaskSigned, actor, nil); err != nil {
		return err
	}
	s.metrics.SigningTasksSigned.Inc()

	sol, err := s.solicitations.Get(ctx, task.SolicitationID)
	if err != nil {
		return err
	}
	event := &model.WorkflowEvent{
		Kind:           model.EventTaskSigned,
		SolicitationID: sol.ID,
		ProcessNumber:  sol.ProcessNumber,
		RequesterID:    sol.RequesterID,
		FromStatus:     sol.Status,
		ToStatus:       sol.Status,
		TaskID:         &taskID,
		DocumentType:   task.DocumentType,
		Actor:          actorName,
		OccurredAt:     time.Now(),
	}
	return s.enqueueEvent(ctx, nil, event)
}

// RejectTask sends one signing task back as REJECTED with a reason.
func (s *Service) RejectTask(ctx context.Context, taskID, actor uuid.UUID, actorName, reason string) error {
	if reason == "" {
		return apperrors.BadRequest("rejection reason is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Resolve(ctx, taskID, model.SigningTaskRejected, actor, &reason); err != nil {
		return err
	}

	sol, err := s.solicitations.Get(ctx, task.SolicitationID)
	if err != nil {
		return err
	}
	event := &model.WorkflowEvent{
		Kind:           model.EventTaskRejected,
		SolicitationID: sol.ID,
		ProcessNumber:  sol.ProcessNumber,
		RequesterID:    sol.RequesterID,
		FromStatus:     sol.Status,
		ToStatus:       sol.Status,
		TaskID:         &taskID,
		DocumentType:   task.DocumentType,
		Actor:          actorName,
		Reason:         reason,
		OccurredAt:     time.Now(),
	}
	return s.enqueueEvent(ctx, nil, event)
}

func (s *Service) checkSignatureGate(ctx context.Context, id uuid.UUID) error {
	tasks, err := s.tasks.QueryBySolicitation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load signing tasks: %w", err)
	}
	var blocking []uuid.UUID
	for _, task := range tasks {
		switch task.Status {
		case model.SigningTaskPending, model.SigningTaskRejected:
			blocking = append(blocking, task.ID)
		}
	}
	if len(blocking) > 0 {
		return apperrors.SignatureGateOpen(blocking)
	}
	return nil
}

func (s *Service) openSigningTasks(ctx context.Context, tx *sqlx.Tx, sol *model.Solicitation, docs []model.DocumentType) error {
	existing, err := s.tasks.QueryBySolicitation(ctx, sol.ID)
	if err != nil {
		return fmt.Errorf("failed to load signing tasks: %w", err)
	}
	open := make(map[model.DocumentType]bool)
	for _, task := range existing {
		if task.Status == model.SigningTaskPending {
			open[task.DocumentType] = true
		}
	}

	var tasks []*model.SigningTask
	for _, doc := range docs {
		if open[doc] {
			continue
		}
		tasks = append(tasks, &model.SigningTask{
			SolicitationID: sol.ID,
			DocumentType:   doc,
			Title:          fmt.Sprintf("%s - %s", doc, sol.Beneficiary),
			Value:          sol.Value,
		})
	}

	// Rejected tasks for documents going back out for signature are
	// replaced, not resurrected; retire them so the gate sees only the
	// current collection round.
	if err := s.tasks.SupersedeRejected(ctx, tx, sol.ID, docs); err != nil {
		return err
	}
	return s.tasks.CreateBatch(ctx, tx, tasks)
}

// enqueueEvent records the event in the outbox. Dispatch is
// fire-and-forget relative to the triggering write: outside a
// transaction an enqueue failure is logged, never returned.
func (s *Service) enqueueEvent(ctx context.Context, tx *sqlx.Tx, event *model.WorkflowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	outboxEvent := &model.OutboxEvent{
		EventType: string(event.Kind),
		Payload:   payload,
	}
	if tx != nil {
		return s.outbox.Create(ctx, tx, outboxEvent)
	}
	if err := s.outbox.Create(ctx, nil, outboxEvent); err != nil {
		s.logger.Error(err, "failed to enqueue workflow event",
			"process_number", event.ProcessNumber,
			"kind", string(event.Kind))
	}
	return nil
}

func processNumber(rt model.RequestType, seq int64) string {
	prefix := prefixFundsSupply
	switch rt {
	case model.RequestTypeTravelAllowance, model.RequestTypeTicket, model.RequestTypeAllowanceAndTicket:
		prefix = prefixTravel
	case model.RequestTypeReimbursement:
		prefix = prefixReimbursement
	}
	return fmt.Sprintf("%s-%d/%04d", prefix, time.Now().Year(), seq)
}
