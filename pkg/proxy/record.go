package proxy

import "time"

// Outcome classifies how a connection ended.
type Outcome string

const (
	OutcomeHit            Outcome = "hit"
	OutcomeMiss           Outcome = "miss"
	OutcomeReadError      Outcome = "read_error"
	OutcomeParseError     Outcome = "parse_error"
	OutcomeInvalidRequest Outcome = "invalid_request"
	OutcomeResolveError   Outcome = "resolve_error"
	OutcomeConnectError   Outcome = "connect_error"
	OutcomeUpstreamError  Outcome = "upstream_error"
	OutcomeWriteError     Outcome = "write_error"
	OutcomeDiscarded      Outcome = "discarded"
)

// Outcomes lists every Outcome, in a stable order.
var Outcomes = []Outcome{
	OutcomeHit,
	OutcomeMiss,
	OutcomeReadError,
	OutcomeParseError,
	OutcomeInvalidRequest,
	OutcomeResolveError,
	OutcomeConnectError,
	OutcomeUpstreamError,
	OutcomeWriteError,
	OutcomeDiscarded,
}

// Record describes one finished client connection.
type Record struct {
	ID         string
	RemoteAddr string
	Method     string
	URL        string
	Host       string
	Outcome    Outcome
	CacheHit   bool
	BytesIn    int
	BytesOut   int
	Start      time.Time
	Duration   time.Duration
	Err        error
}

// ErrText returns the error text, or "" when the connection succeeded.
func (r Record) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Observer receives a Record for every finished connection. Implementations
// are called from worker goroutines and must be safe for concurrent use.
type Observer interface {
	ObserveConnection(Record)
}

// Observers fans a Record out to several observers.
type Observers []Observer

// ObserveConnection calls every observer in order.
func (o Observers) ObserveConnection(r Record) {
	for _, obs := range o {
		obs.ObserveConnection(r)
	}
}
