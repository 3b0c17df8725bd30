package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agilpa/solicitation-api/internal/email"
	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/repository"
	"github.com/agilpa/solicitation-api/pkg/logger"
	"github.com/agilpa/solicitation-api/pkg/messaging"
)

const (
	// Per-user push channel prefix on the broker.
	channelPrefix = "notifications:"

	publishTimeout = 5 * time.Second
)

// Service turns workflow events into durable per-user notifications and
// manages their read state. Creation happens on the outbox worker path,
// never inline with the triggering transition.
type Service struct {
	repo     repository.NotificationRepository
	teams    repository.TeamRepository
	broker   messaging.Broker
	emailSvc email.Service
	logger   *logger.Logger
}

// NewService builds the dispatcher. emailSvc may be nil; then urgent
// notifications stay in-app only.
func NewService(repo repository.NotificationRepository, teams repository.TeamRepository, broker messaging.Broker, emailSvc email.Service, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		teams:    teams,
		broker:   broker,
		emailSvc: emailSvc,
		logger:   log,
	}
}

// Dispatch fans a workflow event out to every affected user: the team
// of the department now owning the item, and the requester on terminal
// or rejection events. Push delivery is best effort; the durable rows
// are the source of truth.
func (s *Service) Dispatch(ctx context.Context, event *model.WorkflowEvent) error {
	notifications, mails, err := s.expand(ctx, event)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		return nil
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}

	for _, n := range notifications {
		s.publish(ctx, n)
	}
	for _, m := range mails {
		s.mail(ctx, m)
	}
	return nil
}

// mailJob mirrors an action-required notification onto the email
// channel.
type mailJob struct {
	to      string
	subject string
	body    string
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filters *model.NotificationFilters) ([]*model.Notification, error) {
	return s.repo.List(ctx, userID, filters)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead is idempotent: marking an already-read notification is a
// no-op.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead affects only notifications unread at call time.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Subscribe streams new notifications for a user until ctx is canceled.
// The stream supplements the authoritative List; a consumer missing
// pushes re-fetches.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan *model.Notification, error) {
	raw, err := s.broker.Subscribe(ctx, channelPrefix+userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *model.Notification, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-raw:
				if !ok {
					return
				}
				var n model.Notification
				if err := json.Unmarshal(payload, &n); err != nil {
					s.logger.Warn("dropping malformed notification payload", "error", err.Error())
					continue
				}
				select {
				case out <- &n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// expand resolves the target user set and builds one notification per
// target, plus email mirrors for action-required ones.
func (s *Service) expand(ctx context.Context, event *model.WorkflowEvent) ([]*model.Notification, []mailJob, error) {
	link := "solicitations/" + event.SolicitationID.String()

	switch event.Kind {
	case model.EventTransitioned:
		return s.expandTransition(ctx, event, link)

	case model.EventRejected:
		return []*model.Notification{{
			UserID:        event.RequesterID,
			Title:         "Processo devolvido",
			Message:       fmt.Sprintf("O processo %s foi devolvido: %s", event.ProcessNumber, event.Reason),
			Type:          model.NotificationWarning,
			Link:          &link,
			ProcessNumber: event.ProcessNumber,
		}}, nil, nil

	case model.EventArchived:
		return []*model.Notification{{
			UserID:        event.RequesterID,
			Title:         "Processo arquivado",
			Message:       fmt.Sprintf("O processo %s foi concluído e arquivado.", event.ProcessNumber),
			Type:          model.NotificationSuccess,
			Link:          &link,
			ProcessNumber: event.ProcessNumber,
		}}, nil, nil

	case model.EventTaskSigned:
		return []*model.Notification{{
			UserID:        event.RequesterID,
			Title:         "Documento assinado",
			Message:       fmt.Sprintf("Documento %s do processo %s foi assinado.", event.DocumentType, event.ProcessNumber),
			Type:          model.NotificationInfo,
			Link:          &link,
			ProcessNumber: event.ProcessNumber,
		}}, nil, nil

	case model.EventTaskRejected:
		return s.expandTaskRejection(ctx, event, link)
	}

	return nil, nil, nil
}

func (s *Service) expandTransition(ctx context.Context, event *model.WorkflowEvent, link string) ([]*model.Notification, []mailJob, error) {
	var notifications []*model.Notification
	var mails []mailJob

	if dept, ok := model.OwnerOf(event.ToStatus); ok {
		members, err := s.teams.ListByDepartment(ctx, dept)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s team: %w", dept, err)
		}

		// Queue arrival is informational; a signature stage demands an
		// action from its owners.
		notifType := model.NotificationInfo
		title := fmt.Sprintf("Novo processo na fila %s", dept)
		if event.ToStatus == model.StatusWaitingSefinSignature || event.ToStatus == model.StatusWaitingManager {
			notifType = model.NotificationActionRequired
			title = "Assinatura pendente"
		}

		message := fmt.Sprintf("O processo %s aguarda %s.", event.ProcessNumber, statusLabel(event.ToStatus))
		for _, member := range members {
			notifications = append(notifications, &model.Notification{
				UserID:        member.UserID,
				Title:         title,
				Message:       message,
				Type:          notifType,
				Link:          &link,
				ProcessNumber: event.ProcessNumber,
			})
			if notifType == model.NotificationActionRequired && member.Email != "" {
				mails = append(mails, mailJob{to: member.Email, subject: title, body: message})
			}
		}
	}

	if event.ToStatus == model.StatusPaid {
		notifications = append(notifications, &model.Notification{
			UserID:        event.RequesterID,
			Title:         "Pagamento efetuado",
			Message:       fmt.Sprintf("O processo %s foi pago.", event.ProcessNumber),
			Type:          model.NotificationSuccess,
			Link:          &link,
			ProcessNumber: event.ProcessNumber,
		})
	}

	return notifications, mails, nil
}

func (s *Service) expandTaskRejection(ctx context.Context, event *model.WorkflowEvent, link string) ([]*model.Notification, []mailJob, error) {
	notifications := []*model.Notification{{
		UserID:        event.RequesterID,
		Title:         "Documento devolvido",
		Message:       fmt.Sprintf("Documento %s do processo %s foi devolvido: %s", event.DocumentType, event.ProcessNumber, event.Reason),
		Type:          model.NotificationWarning,
		Link:          &link,
		ProcessNumber: event.ProcessNumber,
	}}

	// The department holding the process needs to rework the document.
	if dept, ok := model.OwnerOf(event.FromStatus); ok {
		members, err := s.teams.ListByDepartment(ctx, dept)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s team: %w", dept, err)
		}
		for _, member := range members {
			notifications = append(notifications, &model.Notification{
				UserID:        member.UserID,
				Title:         "Documento devolvido",
				Message:       fmt.Sprintf("Documento %s do processo %s precisa de correção.", event.DocumentType, event.ProcessNumber),
				Type:          model.NotificationActionRequired,
				Link:          &link,
				ProcessNumber: event.ProcessNumber,
			})
		}
	}

	return notifications, nil, nil
}

func (s *Service) mail(ctx context.Context, m mailJob) {
	if s.emailSvc == nil {
		return
	}
	if err := s.emailSvc.Send(ctx, m.to, m.subject, m.body); err != nil {
		s.logger.Warn("email delivery failed",
			"to", m.to,
			"error", err.Error())
	}
}

func (s *Service) publish(ctx context.Context, n *model.Notification) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.broker.Publish(ctx, channelPrefix+n.UserID.String(), n); err != nil {
		s.logger.Warn("push delivery failed, consumer will pick it up on next fetch",
			"user_id", n.UserID.String(),
			"error", err.Error())
	}
}

func statusLabel(s model.SolicitationStatus) string {
	switch s {
	case model.StatusWaitingSefinSignature:
		return "assinatura do Ordenador de Despesa"
	case model.StatusWaitingManager:
		return "atesto do Gestor"
	case model.StatusWaitingPayment:
		return "pagamento"
	default:
		return "análise"
	}
}
