// Package gmail wraps the Gmail API behind a narrow Service interface
// so the engine and analyzer can be tested against in-memory fakes.
// The production implementation adapts google.golang.org/api/gmail/v1
// and is decorated with a RetryingService that translates quota and
// auth failures into typed errors.
package gmail
