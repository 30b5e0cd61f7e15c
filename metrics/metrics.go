package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "trx"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	emissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "emissions_total",
		Help:      "Count of TRX document emissions",
	}, []string{
		"run_id",
	})

	emissionResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "emission_results",
		Help:      "Number of results in the most recent emission",
	}, []string{
		"run_id",
	})

	runOutcome = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_outcome",
		Help:      "Outcome of the conversion run",
	}, []string{
		"run_id",
		"outcome",
	})

	runResultsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results_total",
		Help:      "Total number of results in the run",
	}, []string{
		"run_id",
	})

	runResultsFailed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results_failed",
		Help:      "Number of failed results in the run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the conversion run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordEmission counts one document emission and the results it covered.
func RecordEmission(runID string, results int) {
	if Debug {
		log.Debug("metric inc",
			"m", "emissions_total",
			"run_id", runID,
			"results", results)
	}
	emissionsTotal.WithLabelValues(runID).Inc()
	emissionResults.WithLabelValues(runID).Set(float64(results))
}

// RecordRun records the final state of a conversion run.
func RecordRun(runID string, outcome string, total int, failed int, duration time.Duration) {
	runOutcome.WithLabelValues(runID, outcome).Set(1)
	runResultsTotal.WithLabelValues(runID).Set(float64(total))
	runResultsFailed.WithLabelValues(runID).Set(float64(failed))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
