package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fibonsai/exchange-simulator/internal/event"
	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

// Metrics holds the Prometheus collectors for the wallet subsystem.
type Metrics struct {
	registry *prometheus.Registry

	Events           *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	DeliveryFailures prometheus.Counter
	Wallets          prometheus.GaugeFunc
}

// New registers the collectors on a dedicated registry. walletCount may be nil.
func New(walletCount func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exsim",
			Subsystem: "wallet",
			Name:      "events_total",
			Help:      "Wallet events emitted, by type.",
		}, []string{"type"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exsim",
			Subsystem: "wallet",
			Name:      "failures_total",
			Help:      "Failed wallet operations, by cause.",
		}, []string{"cause"}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "exsim",
			Subsystem: "events",
			Name:      "delivery_failures_total",
			Help:      "Event publishes that failed to reach at least one subscriber.",
		}),
	}
	if walletCount != nil {
		m.Wallets = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "exsim",
			Subsystem: "wallet",
			Name:      "wallets",
			Help:      "Wallets currently held by the ledger.",
		}, func() float64 { return float64(walletCount()) })
	}
	return m
}

// ObserveEvent counts e.
func (m *Metrics) ObserveEvent(e event.Event) {
	m.Events.WithLabelValues(string(e.Kind)).Inc()
	if e.Kind == event.KindError {
		m.Failures.WithLabelValues(Cause(e.Err)).Inc()
	}
}

// ObserveDeliveryFailure counts a failed publish.
func (m *Metrics) ObserveDeliveryFailure(error) {
	m.DeliveryFailures.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var causes = []struct {
	err   error
	label string
}{
	{wallet.ErrDuplicateKey, "duplicate_key"},
	{wallet.ErrMultipleAddressesNotAllowed, "multiple_addresses"},
	{wallet.ErrAmbiguousWallet, "ambiguous_wallet"},
	{wallet.ErrAssetMismatch, "asset_mismatch"},
	{wallet.ErrTransactionNotAllowed, "not_allowed"},
	{wallet.ErrInsufficientFunds, "insufficient_funds"},
	{wallet.ErrWalletNotFound, "not_found"},
	{wallet.ErrInvalidAmount, "invalid_amount"},
	{wallet.ErrInvalidArgument, "invalid_argument"},
}

// Cause maps an error to a low-cardinality label.
func Cause(err error) string {
	if err == nil {
		return "none"
	}
	for _, c := range causes {
		if errors.Is(err, c.err) {
			return c.label
		}
	}
	return "other"
}
