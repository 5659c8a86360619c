package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/RajshekharX12/vpn/internal/sysrun"
)

// DefaultEchoURL answers a bare GET with the caller's public IPv4.
const DefaultEchoURL = "https://ifconfig.me/ip"

var srcRe = regexp.MustCompile(`\bsrc\s+([0-9.]+)`)

// EndpointGuesser discovers the host:port clients should dial. It asks
// an IP echo service first and falls back to the local source address
// of the default route, which is only right when the host is not
// behind NAT.
type EndpointGuesser struct {
	Run    sysrun.Runner
	Port   int
	Client *http.Client
	URL    string
}

// Guess returns "ip:port" or an error when neither source yields an
// address.
func (g *EndpointGuesser) Guess(ctx context.Context) (string, error) {
	if ip, err := g.echo(ctx); err == nil {
		return fmt.Sprintf("%s:%d", ip, g.Port), nil
	}
	if ip, ok := g.routeSource(ctx); ok {
		return fmt.Sprintf("%s:%d", ip, g.Port), nil
	}
	return "", fmt.Errorf("could not determine public address")
}

func (g *EndpointGuesser) echo(ctx context.Context) (string, error) {
	url := g.URL
	if url == "" {
		url = DefaultEchoURL
	}
	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip echo returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	ip := net.ParseIP(text)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("ip echo returned %q", text)
	}
	return ip.String(), nil
}

func (g *EndpointGuesser) routeSource(ctx context.Context) (string, bool) {
	if g.Run == nil {
		return "", false
	}
	res, err := g.Run.Run(ctx, "ip", "route", "get", "1.1.1.1")
	if err != nil || !res.Ok() {
		return "", false
	}
	m := srcRe.FindStringSubmatch(res.Stdout)
	if m == nil {
		return "", false
	}
	return m[1], true
}
