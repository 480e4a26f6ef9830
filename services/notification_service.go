package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"proposal-management-api/models"
	"proposal-management-api/repositories"
)

// Mailer delivers an HTML e-mail. config.Mailer satisfies it.
type Mailer interface {
	Send(to []string, subject, html string) error
}

const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Event is one notification fanned out to several users.
type Event struct {
	Recipients []uint
	Title      string
	Message    string
	Type       string
	ProposalID uint
}

type NotificationService struct {
	store  repositories.Store
	mailer Mailer
	logger *zap.Logger

	// dispatch runs e-mail delivery; it starts a goroutine outside tests.
	dispatch func(func())
}

func NewNotificationService(store repositories.Store, mailer Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:    defaultStore(store),
		mailer:   mailer,
		logger:   defaultLogger(logger, "notifications"),
		dispatch: func(fn func()) { go fn() },
	}
}

// Notify stores an in-app row per recipient and e-mails them. Failures are
// logged and never returned; the triggering operation has already committed.
func (s *NotificationService) Notify(ctx context.Context, ev Event) {
	if s == nil {
		return
	}
	if ev.Type == "" {
		ev.Type = NotifyInfo
	}
	recipients := uniqueIDs(ev.Recipients)
	if len(recipients) == 0 {
		return
	}

	var related *uint
	if ev.ProposalID != 0 {
		id := ev.ProposalID
		related = &id
	}
	for _, uid := range recipients {
		n := &models.Notification{
			UserID:            uid,
			Title:             ev.Title,
			Message:           ev.Message,
			Type:              ev.Type,
			RelatedProposalID: related,
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			s.logger.Warn("failed to store notification",
				zap.Uint("user_id", uid), zap.String("title", ev.Title), zap.Error(err))
		}
	}

	if s.mailer == nil {
		return
	}
	mailCtx := persistentContext(ctx)
	s.dispatch(func() {
		for _, uid := range recipients {
			u, err := s.store.GetUser(mailCtx, uid)
			if err != nil || strings.TrimSpace(u.Email) == "" {
				continue
			}
			body := buildFormalEmailHTML(ev.Title, u.FullName(), ev.Message)
			s.sendMailSafe([]string{u.Email}, ev.Title, body)
		}
	})
}

func (s *NotificationService) sendMailSafe(to []string, subject, html string) {
	if err := s.mailer.Send(to, subject, html); err != nil {
		s.logger.Warn("notification email send failed",
			zap.String("subject", subject), zap.Strings("to", to), zap.Error(err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	rows, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	return rows, logUnexpected(s.logger, err, "failed to list notifications", zap.Uint("user_id", userID))
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	err := s.store.MarkNotificationRead(ctx, userID, notificationID)
	return logUnexpected(s.logger, err, "failed to mark notification read",
		zap.Uint("user_id", userID), zap.Uint("notification_id", notificationID))
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func buildFormalEmailHTML(subject, name, message string) string {
	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Yth. %s", strings.TrimSpace(name)))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage)
}
