// Package stripe wraps the hosted checkout calls the storefront makes to the
// payment gateway.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

	// ErrGatewayUnavailable is returned while the circuit breaker is open.
	ErrGatewayUnavailable = errors.New("stripe gateway unavailable")
)

// keyPrefixes lists the secret and restricted key prefixes valid per env.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

type sessionCreator func(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)

type options struct {
	env      string
	secret   string
	timeout  time.Duration
	failures uint32
	cooldown time.Duration
	create   sessionCreator
	logg     *logger.Logger
}

func (o *options) applyDefaults() {
	if o.timeout <= 0 {
		o.timeout = 10 * time.Second
	}
	if o.failures == 0 {
		o.failures = 5
	}
	if o.cooldown <= 0 {
		o.cooldown = 30 * time.Second
	}
}

// Client talks to the gateway with a per-call timeout behind a circuit
// breaker that only counts transport and 5xx failures.
type Client struct {
	environment   string
	signingSecret string
	timeout       time.Duration
	breaker       *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	createSession sessionCreator
}

// NewClient validates the keys against the configured environment and builds
// a dedicated stripe API client. The package-level stripe.Key is never set.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.WebhookSecret)
	switch {
	case apiKey == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	client := newClient(options{
		env:      env,
		secret:   secret,
		timeout:  cfg.Timeout,
		failures: cfg.BreakerFailures,
		cooldown: cfg.BreakerCooldown,
		create:   api.V1CheckoutSessions.Create,
		logg:     logg,
	})
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")
	}
	return client, nil
}

func newClient(opts options) *Client {
	opts.applyDefaults()
	return &Client{
		environment:   opts.env,
		signingSecret: opts.secret,
		timeout:       opts.timeout,
		breaker:       gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](breakerSettings(opts)),
		createSession: opts.create,
	}
}

func breakerSettings(opts options) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Timeout:     opts.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.failures
		},
		IsSuccessful: gatewayAnswered,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if opts.logg == nil {
				return
			}
			ctx := opts.logg.WithFields(context.Background(), map[string]any{"breaker": name, "from": from.String(), "to": to.String()})
			opts.logg.Warn(ctx, "stripe circuit breaker state changed")
		},
	}
}

// gatewayAnswered treats 4xx responses as healthy: stripe processed the
// request and rejected it, which says nothing about availability.
func gatewayAnswered(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		return testEnv, nil
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

func validateAPIKey(env, key string) error {
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return errInvalidStripeEnv
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires a key starting with %s", env, strings.Join(prefixes, " or "))
}
