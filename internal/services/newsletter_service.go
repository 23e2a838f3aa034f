package services

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type NewsletterService struct {
	Subs *repos.SubscriberRepo
	Mail *Mailer
}

func NewNewsletterService(subs *repos.SubscriberRepo, mail *Mailer) *NewsletterService {
	return &NewsletterService{Subs: subs, Mail: mail}
}

// Subscribe records email once. Only a first subscription gets the welcome
// mail; failures to send it are logged and otherwise ignored.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (created bool, err error) {
	email, ok := validate.Email(email)
	if !ok {
		return false, domain.Invalid("email", "a valid email is required")
	}
	created, err = s.Subs.Add(ctx, email)
	if err != nil || !created {
		return created, err
	}
	if s.Mail != nil {
		if err := s.Mail.Welcome(email); err != nil {
			applog.L().Warn("mail.welcome", zap.Error(err))
		}
	}
	return true, nil
}
