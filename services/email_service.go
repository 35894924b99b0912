package services

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// CompletionEmail holds the template data for the case-completed
// notification. Expediente already carries the fallback to the internal id.
type CompletionEmail struct {
	To            string
	NombreCliente string
	Expediente    string
	Tipo          string
	Cups          string
	Direccion     string
	Fecha         string
}

// EmailSender sends transactional email. Implementations report the
// provider status code alongside failure.
type EmailSender interface {
	SendCompletion(data CompletionEmail) (statusCode int, err error)
}

// SendGridEmailService implements EmailSender using the SendGrid v3 API.
type SendGridEmailService struct {
	apiKey string
	sender string
	logger *zap.Logger
}

// NewSendGridEmailService creates the SendGrid-backed email sender.
func NewSendGridEmailService(apiKey, sender string, logger *zap.Logger) *SendGridEmailService {
	return &SendGridEmailService{
		apiKey: apiKey,
		sender: sender,
		logger: logger.With(zap.String("service", "email")),
	}
}

// SendCompletion sends the fixed case-completed template to the client.
func (s *SendGridEmailService) SendCompletion(data CompletionEmail) (int, error) {
	if s.apiKey == "" {
		return 0, fmt.Errorf("SendGrid API key is not configured")
	}

	from := mail.NewEmail("Gestión de Trámites", s.sender)
	to := mail.NewEmail(data.NombreCliente, data.To)
	subject := fmt.Sprintf("Tu trámite #%s ha sido completado", data.Expediente)

	plain := fmt.Sprintf(
		"Estimado/a %s, su trámite con número de expediente %s ha sido completado satisfactoriamente. "+
			"Tipo de trámite: %s. CUPS: %s. Dirección: %s. Fecha de solicitud: %s.",
		data.NombreCliente, data.Expediente, data.Tipo, data.Cups, data.Direccion, data.Fecha)

	html := fmt.Sprintf(`<h2>Estimado/a %s,</h2>
<p>Nos complace informarle que su trámite con número de expediente
<strong>%s</strong> ha sido completado satisfactoriamente.</p>
<h3>Detalles del trámite:</h3>
<ul>
  <li><strong>Tipo de trámite:</strong> %s</li>
  <li><strong>CUPS:</strong> %s</li>
  <li><strong>Dirección:</strong> %s</li>
  <li><strong>Fecha de solicitud:</strong> %s</li>
</ul>
<p>Si tiene alguna pregunta o necesita más información, no dude en contactarnos.</p>
<p>Atentamente,<br>El equipo de gestión de trámites</p>`,
		data.NombreCliente, data.Expediente, data.Tipo, data.Cups, data.Direccion, data.Fecha)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(s.apiKey)

	response, err := client.Send(message)
	if err != nil {
		return 0, fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return response.StatusCode, fmt.Errorf("email provider returned status %d: %s", response.StatusCode, response.Body)
	}

	s.logger.Info("Completion email sent",
		zap.String("to", data.To),
		zap.String("expediente", data.Expediente),
		zap.Int("status_code", response.StatusCode))

	return response.StatusCode, nil
}
