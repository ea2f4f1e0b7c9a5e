package metric

// Metric is the distance measure used to rank sounds.
type Metric string

// Metric constants.
const (
	Euclidean Metric = "euclidean"
	// Mahalanobis weights differences by the inverse covariance of the
	// catalog ratings and is unavailable when that covariance is singular.
	Mahalanobis Metric = "mahalanobis"
)

// All returns the supported metrics in presentation order.
func All() []Metric { return []Metric{Euclidean, Mahalanobis} }

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == Euclidean || m == Mahalanobis
}
