package api

import "github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"

// Store is the persistence surface shared by every service. The SQL store in
// internal/db and MemoryStore both satisfy it.
type Store interface {
	services.SurveyStore
	services.RegistrationStore
	services.ChallengeStore
	services.AuthStore
	services.OrganizationStore
	services.AnalyticsStore
}

var _ Store = (*MemoryStore)(nil)
