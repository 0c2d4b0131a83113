package auth

import "context"

// LogMailer writes outbound mail to the log instead of delivering it. The
// default in development; deployments plug in a real transport.
type LogMailer struct {
	Logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info("outbound email to=%s subject=%q", to, subject)
	logger.Debug("email body: %s", htmlBody)

	return nil
}
