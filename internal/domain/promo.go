package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PromoCode struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ValidFrom          time.Time       `json:"valid_from"`
	ValidUntil         time.Time       `json:"valid_until"`
	UsageLimit         *int            `json:"usage_limit,omitempty"`
	TimesUsed          int             `json:"times_used"`
	Active             bool            `json:"active"`
}

// NormalizeCode is the canonical form promo codes are stored and looked up by.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeemable reports whether the code may still be applied at the given moment.
func (p *PromoCode) Redeemable(now time.Time) bool {
	if !p.Active {
		return false
	}

	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return false
	}

	if p.UsageLimit != nil && p.TimesUsed >= *p.UsageLimit {
		return false
	}

	return true
}

func (p *PromoCode) Clone() *PromoCode {
	c := *p

	if p.UsageLimit != nil {
		limit := *p.UsageLimit
		c.UsageLimit = &limit
	}

	return &c
}
