package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks answer values whose key matches one
// of the patterns before they reach the remote store. The email field is masked when a
// pattern matches "email".
func NewPIIMiddleware(patternStrings []string) (SessionMiddleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Create(ctx context.Context, utm domain.UTM) (string, error) {
	return m.next.Create(ctx, utm)
}

func (m *piiMiddleware) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	// The answer map is shared with the caller's snapshot; never mask in place.
	if update.Answers != nil {
		update.Answers = deepCopyMap(update.Answers)
		maskMap(update.Answers, m.patterns)
	}
	if update.Email != nil && matches(domain.KeyEmail, m.patterns) {
		masked := Mask
		update.Email = &masked
	}
	return m.next.Update(ctx, id, update)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch sub := v.(type) {
		case map[string]any:
			out[k] = deepCopyMap(sub)
		case map[string]string:
			cp := make(map[string]string, len(sub))
			for sk, sv := range sub {
				cp[sk] = sv
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matches(k, patterns) {
			m[k] = Mask
			continue
		}

		switch sub := v.(type) {
		case map[string]any:
			maskMap(sub, patterns)
		case map[string]string:
			for sk := range sub {
				if matches(sk, patterns) {
					sub[sk] = Mask
				}
			}
		}
	}
}

func matches(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
