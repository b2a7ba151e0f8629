package capability

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"arenamic/internal/domain"
	"arenamic/internal/logging"
	"arenamic/internal/ports"
)

var log = logging.L("capability")

// Prober inspects the host environment once and caches the report.
type Prober struct {
	env ports.HostEnvironment
	now func() time.Time

	once   sync.Once
	report domain.CapabilityReport
}

func NewProber(env ports.HostEnvironment) *Prober {
	return &Prober{env: env, now: time.Now}
}

// Probe returns the capability report, computing it on first use. Only
// device enumeration touches the host; its failure degrades the input count
// to zero.
func (p *Prober) Probe(ctx context.Context) domain.CapabilityReport {
	p.once.Do(func() {
		p.report = p.probe(ctx)
		log.Info("capabilities probed",
			"host", p.report.Host,
			"modern", p.report.HasModernCaptureAPI,
			"legacy", p.report.HasLegacyCaptureAPI,
			"recorder", p.report.HasRecorderAPI,
			"secureOrLocal", p.report.IsSecureOrLocalContext,
			"audioInputs", p.report.AvailableAudioInputCount,
		)
		for _, device := range p.report.AudioInputs {
			log.Debug("audio input", "id", device.ID, "name", device.Name, "default", device.IsDefault)
		}
	})
	return p.report
}

func (p *Prober) probe(ctx context.Context) (report domain.CapabilityReport) {
	report.ProbedAt = p.now()
	if p.env == nil {
		return report
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn("capability probe panicked", "panic", r)
			report = domain.CapabilityReport{ProbedAt: report.ProbedAt}
		}
	}()

	report.Host = p.env.Host()
	report.HasModernCaptureAPI = p.env.ModernCaptureAvailable()
	report.HasLegacyCaptureAPI = p.env.LegacyCaptureAvailable()
	report.HasRecorderAPI = p.env.RecorderAvailable()
	report.IsSecureContext = p.env.SecureContext()
	report.IsLocalHost = IsLocalHost(report.Host)
	report.IsSecureOrLocalContext = report.IsSecureContext || report.IsLocalHost

	if report.HasModernCaptureAPI {
		devices, err := p.env.AudioInputs(ctx)
		if err != nil {
			log.Warn("audio input enumeration failed", logging.KeyError, err)
		} else {
			report.AudioInputs = devices
			report.AvailableAudioInputCount = len(devices)
		}
	}
	return report
}

var localSuffixes = []string{".local", ".lan", ".home.arpa", ".internal", ".localhost"}

// IsLocalHost reports whether host names a loopback, private or LAN address
// treated as trusted even without a secure transport.
func IsLocalHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return false
	}

	if host == "localhost" || host == "0.0.0.0" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
	}
	for _, suffix := range localSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
