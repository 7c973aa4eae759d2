package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlsantiago/sis-api/pkg/export"
	"github.com/nlsantiago/sis-api/pkg/jobs"
	"github.com/nlsantiago/sis-api/pkg/mailer"
)

// JobTypeAdmissionNotice identifies admission notice jobs on the queue.
const JobTypeAdmissionNotice = "admission_notice"

// AdmissionNotice is the payload for a queued approval notification.
type AdmissionNotice struct {
	ApplicationID     string
	ApplicationNumber string
	FirstName         string
	MiddleName        string
	LastName          string
	GradeLevel        string
	ParentEmail       string
	SchoolAddress     string
	ApprovedAt        time.Time
}

type certificateRenderer interface {
	Render(data export.AdmissionData) ([]byte, error)
}

type certificateStore interface {
	Save(filename string, data []byte) (string, error)
}

type noticeEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type noticeObserver interface {
	ObserveNotice(outcome string)
}

// NotificationService produces admission certificates and delivers the
// approval email. All work runs on the background queue; a failed
// delivery never unwinds an approval.
type NotificationService struct {
	renderer      certificateRenderer
	store         certificateStore
	mail          mailer.Mailer
	schoolAddress string
	queue         noticeEnqueuer
	metrics       noticeObserver
	logger        *zap.Logger
}

// NewNotificationService constructs NotificationService. The mailer may
// be nil when no provider is configured; certificates are still rendered
// and stored. The school address, when set, receives a copy of every
// admission notice.
func NewNotificationService(renderer certificateRenderer, store certificateStore, mail mailer.Mailer, schoolAddress string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{renderer: renderer, store: store, mail: mail, schoolAddress: schoolAddress, logger: logger}
}

// BindQueue attaches the queue used by Notify. Split from the
// constructor because the queue handler is this service's Process.
func (s *NotificationService) BindQueue(queue noticeEnqueuer) {
	s.queue = queue
}

// BindMetrics attaches the notice outcome counter. Optional.
func (s *NotificationService) BindMetrics(metrics noticeObserver) {
	s.metrics = metrics
}

func (s *NotificationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveNotice(outcome)
	}
}

// Notify enqueues an admission notice. Errors are logged, not returned;
// the caller's transaction has already committed.
func (s *NotificationService) Notify(notice AdmissionNotice) {
	if s.queue == nil {
		s.logger.Warn("notification queue not configured, dropping admission notice",
			zap.String("application_id", notice.ApplicationID))
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeAdmissionNotice,
		Payload: notice,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue admission notice",
			zap.String("application_id", notice.ApplicationID), zap.Error(err))
	}
}

// Process is the queue handler: render the certificate, store it under
// the application number, and email it to the parent.
func (s *NotificationService) Process(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(AdmissionNotice)
	if !ok {
		s.logger.Error("unexpected payload on notification queue", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	pdf, err := s.renderer.Render(export.AdmissionData{
		ApplicationNumber: notice.ApplicationNumber,
		FirstName:         notice.FirstName,
		MiddleName:        notice.MiddleName,
		LastName:          notice.LastName,
		GradeLevel:        notice.GradeLevel,
		ApprovedAt:        notice.ApprovedAt,
	})
	if err != nil {
		s.observe("failed")
		return fmt.Errorf("render admission certificate: %w", err)
	}

	filename := fmt.Sprintf("certificates/%s.pdf", notice.ApplicationNumber)
	if s.store != nil {
		if _, err := s.store.Save(filename, pdf); err != nil {
			s.observe("failed")
			return fmt.Errorf("store admission certificate: %w", err)
		}
	}

	if s.mail == nil || notice.ParentEmail == "" {
		s.observe("stored")
		return nil
	}
	if notice.SchoolAddress == "" {
		notice.SchoolAddress = s.schoolAddress
	}
	recipients := []string{notice.ParentEmail}
	if s.schoolAddress != "" {
		recipients = append(recipients, s.schoolAddress)
	}
	msg := mailer.Message{
		To:      recipients,
		Subject: fmt.Sprintf("Admission Confirmed - %s", notice.ApplicationNumber),
		Body:    s.noticeBody(notice),
		Attachments: []mailer.Attachment{{
			Filename:    fmt.Sprintf("%s.pdf", notice.ApplicationNumber),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := s.mail.Send(msg); err != nil {
		s.observe("failed")
		return fmt.Errorf("send admission notice: %w", err)
	}
	s.observe("delivered")
	s.logger.Info("admission notice delivered",
		zap.String("application_number", notice.ApplicationNumber),
		zap.String("to", notice.ParentEmail))
	return nil
}

func (s *NotificationService) noticeBody(notice AdmissionNotice) string {
	name := notice.FirstName + " " + notice.LastName
	body := fmt.Sprintf(
		"Good day,\n\nWe are pleased to inform you that the enrollment application %s for %s (%s) has been approved. The certificate of admission is attached.\n",
		notice.ApplicationNumber, name, notice.GradeLevel)
	if notice.SchoolAddress != "" {
		body += fmt.Sprintf("\nPlease contact the registrar at %s to complete the enrollment requirements.\n", notice.SchoolAddress)
	}
	return body
}
