package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/logging"
)

// ErrBindFailed is returned when no listener could be opened. Callers treat
// it as fatal.
var ErrBindFailed = errors.New("api: bind failed")

const maxPort = 65535

// ListenConfig describes where to bind.
type ListenConfig struct {
	Host string
	Port int

	// MaxAttempts caps how many consecutive ports are tried. 0 means keep
	// going until port 65535.
	MaxAttempts int

	Logger *logging.Logger

	// OnAttempt, if set, is called before each bind attempt.
	OnAttempt func(port int)
}

// listenTCP is replaced in tests to inject bind errors.
var listenTCP = func(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}

// Listen binds cfg.Host:cfg.Port. When the port is already in use it logs
// and tries the next one, up to MaxAttempts ports. Any other bind error
// stops the search immediately.
func Listen(ctx context.Context, cfg ListenConfig) (net.Listener, error) {
	if cfg.Port < 0 || cfg.Port > maxPort {
		return nil, fmt.Errorf("%w: invalid port %d", ErrBindFailed, cfg.Port)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	port := cfg.Port
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindFailed, err)
		}
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(port)
		}

		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
		ln, err := listenTCP(ctx, addr)
		if err == nil {
			if port != cfg.Port {
				logger.Info("bound to fallback port",
					"requested_port", cfg.Port,
					"address", ln.Addr().String(),
				)
			}
			return ln, nil
		}

		if !isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrBindFailed, addr, err)
		}

		if port >= maxPort || (cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts) {
			return nil, fmt.Errorf("%w: no free port in %d-%d", ErrBindFailed, cfg.Port, port)
		}

		logger.Warn("port in use, trying next", "port", port, "next_port", port+1)
		port++
	}
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
