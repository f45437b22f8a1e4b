// Package checkout holds gateway-independent checkout helpers shared by the
// initiator and the HTTP layer.
package checkout

import (
	"net/url"
	"strings"

	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

// SessionIDPlaceholder is substituted by the gateway with the real session id.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Redirects are the URLs the hosted payment page returns the buyer to.
type Redirects struct {
	SuccessURL string
	CancelURL  string
}

// RedirectInput describes where the buyer asked to come back to.
type RedirectInput struct {
	ReturnURL      string
	DefaultSuccess string
	DefaultCancel  string
	AllowedOrigins []string
	OrderID        string
}

// ResolveRedirects builds success/cancel URLs from ReturnURL when present,
// otherwise from the configured defaults. ReturnURL must be an absolute
// http(s) URL on an allowed origin; with no allow-list configured only the
// default success URL's origin is accepted.
func ResolveRedirects(in RedirectInput) (Redirects, error) {
	raw := strings.TrimSpace(in.ReturnURL)
	if raw == "" {
		success, err := withParams(in.DefaultSuccess, "success", in.OrderID)
		if err != nil {
			return Redirects{}, err
		}
		cancel, err := withParams(in.DefaultCancel, "cancelled", in.OrderID)
		if err != nil {
			return Redirects{}, err
		}
		return Redirects{SuccessURL: success, CancelURL: cancel}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Redirects{}, pkgerrors.New(pkgerrors.CodeValidation, "returnUrl must be an absolute http(s) url")
	}

	allowed := in.AllowedOrigins
	if len(allowed) == 0 {
		if d, err := url.Parse(in.DefaultSuccess); err == nil && d.Host != "" {
			allowed = []string{Origin(d)}
		}
	}
	if !OriginAllowed(Origin(u), allowed) {
		return Redirects{}, pkgerrors.New(pkgerrors.CodeValidation, "returnUrl origin is not allowed").
			WithDetails(map[string]any{"origin": Origin(u)})
	}

	success, err := withParams(raw, "success", in.OrderID)
	if err != nil {
		return Redirects{}, err
	}
	cancel, err := withParams(raw, "cancelled", in.OrderID)
	if err != nil {
		return Redirects{}, err
	}
	return Redirects{SuccessURL: success, CancelURL: cancel}, nil
}

// Origin renders scheme://host[:port] in lower case.
func Origin(u *url.URL) string {
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// OriginAllowed compares origins case-insensitively, ignoring trailing slashes.
func OriginAllowed(origin string, allowed []string) bool {
	origin = strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
	if origin == "" {
		return false
	}
	for _, candidate := range allowed {
		if strings.TrimRight(strings.ToLower(strings.TrimSpace(candidate)), "/") == origin {
			return true
		}
	}
	return false
}

// withParams appends checkout state to base. The session placeholder is
// appended verbatim because the gateway matches it literally.
func withParams(base, state, orderID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "checkout redirect url misconfigured")
	}
	q := u.Query()
	q.Set("checkout", state)
	if orderID != "" {
		q.Set("orderId", orderID)
	}
	u.RawQuery = q.Encode()
	out := u.String()
	if state == "success" {
		out += "&session_id=" + SessionIDPlaceholder
	}
	return out, nil
}
