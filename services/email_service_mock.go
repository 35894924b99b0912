package services

// MockEmailService is a mock implementation of EmailSender for testing.
type MockEmailService struct {
	// Sent records every completion email handed to the mock.
	Sent []CompletionEmail

	// Err, when set, is returned from SendCompletion to simulate a
	// provider failure.
	Err error

	// StatusCode is the provider status code to report (default 202).
	StatusCode int
}

// NewMockEmailService creates a mock email sender.
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{StatusCode: 202}
}

// SendCompletion records the email and returns the configured outcome.
func (m *MockEmailService) SendCompletion(data CompletionEmail) (int, error) {
	if m.Err != nil {
		return m.StatusCode, m.Err
	}
	m.Sent = append(m.Sent, data)
	return m.StatusCode, nil
}
