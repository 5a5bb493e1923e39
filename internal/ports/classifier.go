package ports

import "github.com/cp25sy5-modjot/pii-redact-service/internal/domain"

type ClassifierPort interface {
	Classify(tokens []domain.Token) []domain.PiiItem
}
