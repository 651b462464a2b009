// prometheus.go - Prometheus metrics for the pharma node API
package server

import "github.com/prometheus/client_golang/prometheus"

var (
	MedicineCreateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pharma_medicine_create_total",
			Help: "Total number of add-medicine requests received",
		},
	)

	MedicineCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pharma_medicine_create_duration_seconds",
			Help:    "Duration of successful batch creation including ledger submission",
			Buckets: prometheus.DefBuckets,
		},
	)

	VerificationTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pharma_verification_total",
			Help: "Total number of verification requests received",
		},
	)

	VerificationFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pharma_verification_failed_total",
			Help: "Total number of verifications with an invalid signature or scratch card",
		},
	)

	TransferTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pharma_transfer_total",
			Help: "Total number of custody transfer requests received",
		},
	)

	LedgerSubmissionFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pharma_ledger_submission_failed_total",
			Help: "Total number of failed or partial ledger submissions",
		},
	)
)

// RegisterMetrics registers all Prometheus metrics
func RegisterMetrics() {
	prometheus.MustRegister(MedicineCreateTotal)
	prometheus.MustRegister(MedicineCreateDuration)
	prometheus.MustRegister(VerificationTotal)
	prometheus.MustRegister(VerificationFailedTotal)
	prometheus.MustRegister(TransferTotal)
	prometheus.MustRegister(LedgerSubmissionFailedTotal)
}
