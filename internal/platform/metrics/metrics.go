package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is safe
// to call; services constructed without metrics skip instrumentation.
type Metrics struct {
	AccountsCreated      prometheus.Counter
	Logins               *prometheus.CounterVec
	LegacyCredentialUses prometheus.Counter
	EmailChangeRequests  prometheus.Counter
	EmailChangesDone     prometheus.Counter
	RUTAssignments       prometheus.Counter
	TokensIssued         prometheus.Counter
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pymegate_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pymegate_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		LegacyCredentialUses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pymegate_legacy_credential_logins_total",
			Help: "Logins authenticated through the plaintext credential fallback",
		}),
		EmailChangeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pymegate_email_change_requests_total",
			Help: "Email change verification tokens generated",
		}),
		EmailChangesDone: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pymegate_email_changes_confirmed_total",
			Help: "Email changes confirmed",
		}),
		RUTAssignments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pymegate_rut_assignments_total",
			Help: "One-time national ID assignments completed",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pymegate_tokens_issued_total",
			Help: "Bearer tokens issued",
		}),
	}
}

func (m *Metrics) IncAccountsCreated() {
	if m != nil {
		m.AccountsCreated.Inc()
	}
}

func (m *Metrics) IncLogin(outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncLegacyCredentialUse() {
	if m != nil {
		m.LegacyCredentialUses.Inc()
	}
}

func (m *Metrics) IncEmailChangeRequest() {
	if m != nil {
		m.EmailChangeRequests.Inc()
	}
}

func (m *Metrics) IncEmailChangeDone() {
	if m != nil {
		m.EmailChangesDone.Inc()
	}
}

func (m *Metrics) IncRUTAssignment() {
	if m != nil {
		m.RUTAssignments.Inc()
	}
}

func (m *Metrics) IncTokenIssued() {
	if m != nil {
		m.TokensIssued.Inc()
	}
}
