package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ClassifyStatus maps an accessibility status code to its state.
func ClassifyStatus(code int) AccessState {
	switch code {
	case http.StatusOK:
		return AccessAccessible
	case http.StatusForbidden:
		return AccessForbidden
	case http.StatusNotFound:
		return AccessNotFound
	case http.StatusMovedPermanently, http.StatusFound:
		return AccessRedirected
	}
	return AccessUnexpected
}

// VerifyAccess fetches rawURL with the configured method and follows at
// most one 301/302. The hop target is classified but never followed
// further, and nothing is retried.
func (p *Probe) VerifyAccess(ctx context.Context, rawURL string) *AccessOutcome {
	outcome := p.fetchOnce(ctx, rawURL)
	if outcome.State != AccessRedirected {
		return outcome
	}

	if outcome.Location == "" {
		outcome.Error = "redirect without Location header"
		return outcome
	}

	target, err := resolveLocation(rawURL, outcome.Location)
	if err != nil {
		outcome.Error = fmt.Sprintf("invalid redirect location: %v", err)
		return outcome
	}

	LogDebug("Following redirect to %s", target)
	outcome.Hop = p.fetchOnce(ctx, target)
	return outcome
}

func (p *Probe) fetchOnce(ctx context.Context, rawURL string) *AccessOutcome {
	method := http.MethodHead
	if p.opts.AccessMethod == AccessMethodGet {
		method = http.MethodGet
	}

	outcome := &AccessOutcome{URL: rawURL, Method: method, ContentLength: -1}
	LogDebug("%s %s (timeout %s)", method, rawURL, p.opts.AccessTimeout)

	ctx, cancel := context.WithTimeout(ctx, p.opts.AccessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		outcome.State = AccessUnreachable
		outcome.Error = fmt.Sprintf("invalid URL: %v", err)
		return outcome
	}

	resp, err := p.noRedirect.Do(req)
	if err != nil {
		outcome.State = AccessUnreachable
		outcome.Error = err.Error()
		return outcome
	}
	// GET is streamed: the body is closed unread.
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	outcome.State = ClassifyStatus(resp.StatusCode)
	switch outcome.State {
	case AccessAccessible:
		outcome.ContentType = resp.Header.Get("Content-Type")
		outcome.ContentLength = resp.ContentLength
	case AccessRedirected:
		outcome.Location = resp.Header.Get("Location")
	}
	return outcome
}

func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}
