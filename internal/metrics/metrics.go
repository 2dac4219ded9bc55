// metrics.go - Prometheus instrumentation
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package metrics exposes optional Prometheus instrumentation for the
// tunnel and handshake packages. Every exported method is safe to call on
// a nil *Recorder: wiring metrics is opt-in, so the cryptographic core
// stays usable (and trivially testable) with zero observability
// dependencies when a caller doesn't construct a Recorder.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder holds the Prometheus collectors for one process's tunnel
// activity. Register it with a prometheus.Registerer (or the default
// registry) once; pass the same *Recorder to every tunnel.State that
// should contribute to it. Handshake outcomes are recorded by the caller
// through HandshakeSucceeded and HandshakeFailed.
type Recorder struct {
	recordsSent       prometheus.Counter
	recordsReceived   prometheus.Counter
	bytesSent         prometheus.Counter
	bytesReceived     prometheus.Counter
	replayRejected    prometheus.Counter
	shortReadRejected prometheus.Counter
	authFailed        prometheus.Counter
	handshakeOK       prometheus.Counter
	handshakeFailed   prometheus.Counter
}

// NewRecorder creates a Recorder and registers its collectors with reg.
// cmd/tunnels passes a dedicated prometheus.NewRegistry and serves that
// registry on /metrics.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		recordsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_records_sent_total",
			Help: "Records successfully sent on the tunnel.",
		}),
		recordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_records_received_total",
			Help: "Records successfully authenticated and decrypted.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_bytes_sent_total",
			Help: "Plaintext bytes sent on the tunnel.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_bytes_received_total",
			Help: "Plaintext bytes received from the tunnel.",
		}),
		replayRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_replay_rejected_total",
			Help: "Records dropped for having a sequence below the high-water mark.",
		}),
		shortReadRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_short_read_rejected_total",
			Help: "Records dropped for being shorter than the minimum frame size.",
		}),
		authFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_auth_failed_total",
			Help: "Records dropped for failing AEAD authentication.",
		}),
		handshakeOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_handshake_success_total",
			Help: "Handshakes that completed and derived session keys.",
		}),
		handshakeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptotunnel_handshake_failed_total",
			Help: "Handshakes that failed before deriving session keys.",
		}),
	}

	collectors := []prometheus.Collector{
		r.recordsSent, r.recordsReceived, r.bytesSent, r.bytesReceived,
		r.replayRejected, r.shortReadRejected, r.authFailed,
		r.handshakeOK, r.handshakeFailed,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) RecordSent(n int) {
	if r == nil {
		return
	}
	r.recordsSent.Inc()
	r.bytesSent.Add(float64(n))
}

func (r *Recorder) RecordReceived(n int) {
	if r == nil {
		return
	}
	r.recordsReceived.Inc()
	r.bytesReceived.Add(float64(n))
}

func (r *Recorder) ReplayRejected() {
	if r == nil {
		return
	}
	r.replayRejected.Inc()
}

func (r *Recorder) ShortReadRejected() {
	if r == nil {
		return
	}
	r.shortReadRejected.Inc()
}

func (r *Recorder) AuthFailed() {
	if r == nil {
		return
	}
	r.authFailed.Inc()
}

func (r *Recorder) HandshakeSucceeded() {
	if r == nil {
		return
	}
	r.handshakeOK.Inc()
}

func (r *Recorder) HandshakeFailed() {
	if r == nil {
		return
	}
	r.handshakeFailed.Inc()
}
