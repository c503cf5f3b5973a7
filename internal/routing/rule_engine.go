package routing

import (
	"fmt"
	"regexp"

	"message-gateway/internal/message"
)

// rule is one compiled outbound rule of a fan-out router
type rule struct {
	endpoint string
	source   string
	match    func(msg *message.Message) bool
}

// ruleEngine evaluates every rule in order. Unlike first-match routing, all
// matching rules contribute an endpoint; an endpoint is returned once even if
// several of its rules match.
type ruleEngine struct {
	rules    []rule
	fallback string
}

func (e *ruleEngine) evaluate(msg *message.Message) ([]string, error) {
	var endpoints []string
	for _, r := range e.rules {
		if !r.match(msg) || SliceContains(endpoints, r.endpoint) {
			continue
		}
		endpoints = append(endpoints, r.endpoint)
	}

	if len(endpoints) > 0 {
		return endpoints, nil
	}
	if e.fallback != "" {
		return []string{e.fallback}, nil
	}
	return nil, noRoute(msg, ReasonNoFallback, "no rule matched and no fallback is configured")
}

// compileAddressRule anchors suffix behind the "+" sign and country code.
// The suffix is a regular expression; the country code is matched literally.
func compileAddressRule(countryCode, endpoint, suffix string) (rule, error) {
	source := `^\+` + regexp.QuoteMeta(countryCode) + suffix
	re, err := regexp.Compile(source)
	if err != nil {
		return rule{}, fmt.Errorf("%w: endpoint %q pattern %q: %v", ErrRuleCompilationFailed, endpoint, suffix, err)
	}
	return rule{
		endpoint: endpoint,
		source:   source,
		match:    func(msg *message.Message) bool { return re.MatchString(msg.ToAddr) },
	}, nil
}

func metadataRule(key, endpoint string) rule {
	return rule{
		endpoint: endpoint,
		source:   key,
		match:    func(msg *message.Message) bool { return msg.HasMetadataKey(key) },
	}
}
