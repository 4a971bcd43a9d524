package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func paymentEventHandlers() repository.ModelHandlers[*paymentEventRecord] {
	return repository.ModelHandlers[*paymentEventRecord]{
		NewRecord: func() *paymentEventRecord {
			return &paymentEventRecord{}
		},
		GetID: func(record *paymentEventRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *paymentEventRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *paymentEventRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func dedupClaimHandlers() repository.ModelHandlers[*dedupClaimRecord] {
	return repository.ModelHandlers[*dedupClaimRecord]{
		NewRecord: func() *dedupClaimRecord {
			return &dedupClaimRecord{}
		},
		GetID: func(record *dedupClaimRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *dedupClaimRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *dedupClaimRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
