package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/shared/constants"

	"github.com/miekg/dns"
)

type DNSRunner struct {
	timeout time.Duration
}

func NewDNSRunner() *DNSRunner {
	return &DNSRunner{
		timeout: constants.DNSTimeout,
	}
}

func (r *DNSRunner) Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	settings := monitor.DNS
	if settings == nil {
		return nil, errors.New("dns settings are missing")
	}

	recordType, ok := recordTypeToDNSType(settings.RecordType)
	if !ok {
		return nil, fmt.Errorf("unsupported record type %q", settings.RecordType)
	}

	port := settings.Port
	if port == 0 {
		port = 53
	}
	server := net.JoinHostPort(settings.Resolver, strconv.Itoa(port))

	client := &dns.Client{
		Timeout: remaining(ctx, r.timeout),
	}

	msg := dns.Msg{}
	msg.SetQuestion(dns.Fqdn(settings.Hostname), recordType)

	response, rtt, err := client.ExchangeContext(ctx, &msg, server)
	if err != nil {
		return nil, fmt.Errorf("DNS query failed: %w", err)
	}

	if response.Rcode != dns.RcodeSuccess {
		return models.NewFailureResult(rtt, fmt.Sprintf("DNS error: %s", dns.RcodeToString[response.Rcode])), nil
	}

	if len(response.Answer) == 0 {
		return models.NewFailureResult(rtt, fmt.Sprintf("No %s records found for %s", settings.RecordType, settings.Hostname)), nil
	}

	records := make([]string, 0, len(response.Answer))
	for _, answer := range response.Answer {
		records = append(records, recordValue(answer))
	}

	message := fmt.Sprintf("Records: %s", strings.Join(records, " | "))
	if ttl := extractMinTTL(response.Answer); ttl > 0 {
		message += fmt.Sprintf(" (ttl %ds)", ttl)
	}
	return models.NewSuccessResult(rtt, message), nil
}

func recordTypeToDNSType(recordType string) (uint16, bool) {
	switch strings.ToUpper(recordType) {
	case "", "A":
		return dns.TypeA, true
	case "AAAA":
		return dns.TypeAAAA, true
	case "MX":
		return dns.TypeMX, true
	case "NS":
		return dns.TypeNS, true
	case "TXT":
		return dns.TypeTXT, true
	case "CNAME":
		return dns.TypeCNAME, true
	case "SOA":
		return dns.TypeSOA, true
	case "PTR":
		return dns.TypePTR, true
	case "SRV":
		return dns.TypeSRV, true
	case "CAA":
		return dns.TypeCAA, true
	default:
		return 0, false
	}
}

// recordValue данные записи без заголовка
func recordValue(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.CNAME:
		return v.Target
	case *dns.NS:
		return v.Ns
	case *dns.PTR:
		return v.Ptr
	case *dns.MX:
		return fmt.Sprintf("%s %d", v.Mx, v.Preference)
	case *dns.TXT:
		return strings.Join(v.Txt, "")
	default:
		return strings.TrimPrefix(rr.String(), rr.Header().String())
	}
}

func extractMinTTL(answers []dns.RR) uint32 {
	if len(answers) == 0 {
		return 0
	}

	minTTL := answers[0].Header().Ttl
	for _, answer := range answers[1:] {
		if answer.Header().Ttl < minTTL {
			minTTL = answer.Header().Ttl
		}
	}
	return minTTL
}
