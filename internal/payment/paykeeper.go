package payment

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	tokenCacheKey = "paykeeper_token"
	tokenTTL      = 12 * time.Hour
)

// webhookSignedFields is the provider-defined field order for the callback
// digest: md5(id + sum + clientid + orderid + secret).
var webhookSignedFields = [...]string{"id", "sum", "clientid", "orderid"}

// paykeeperStatuses maps provider status strings to the domain enum. Anything
// outside this table is an error-class result, never a benign default.
var paykeeperStatuses = map[string]domain.Status{
	"created": domain.StatusCreated,
	"sent":    domain.StatusCreated,
	"paid":    domain.StatusPaid,
	"expired": domain.StatusError,
}

type PaykeeperConfig struct {
	BaseURL  string
	User     string
	Password string
	Secret   string
}

// Paykeeper talks to the Paykeeper invoice API. Write calls carry a
// short-lived security token cached in the shared key-value store; a lost
// update on token refresh costs one extra fetch and is tolerated.
type Paykeeper struct {
	cfg    PaykeeperConfig
	cache  TokenCache
	caller httpCaller
}

func NewPaykeeper(cfg PaykeeperConfig, cache TokenCache, log *slog.Logger) *Paykeeper {
	return &Paykeeper{
		cfg:    cfg,
		cache:  cache,
		caller: newHTTPCaller(log),
	}
}

func (p *Paykeeper) headers() map[string]string {
	basic := base64.StdEncoding.EncodeToString([]byte(p.cfg.User + ":" + p.cfg.Password))
	return map[string]string{
		"Content-Type":  "application/x-www-form-urlencoded",
		"Authorization": "Basic " + basic,
	}
}

// token returns the cached security token, fetching a fresh one on a miss.
func (p *Paykeeper) token(ctx context.Context) string {
	if tok, ok, err := p.cache.Get(ctx, tokenCacheKey); err == nil && ok {
		return tok
	}
	res := p.caller.call(ctx, callOpts{
		method:  "GET",
		url:     p.cfg.BaseURL + "info/settings/token/",
		headers: p.headers(),
		silent:  true,
	})
	tok := paramString(res.Raw, "token")
	if tok != "" {
		_ = p.cache.Set(ctx, tokenCacheKey, tok, tokenTTL)
	}
	return tok
}

func (p *Paykeeper) post(ctx context.Context, resource string, form url.Values, orderID string) Result {
	form.Set("token", p.token(ctx))
	return p.caller.call(ctx, callOpts{
		method:  "POST",
		url:     p.cfg.BaseURL + resource,
		form:    form,
		headers: p.headers(),
		orderID: orderID,
	})
}

func (p *Paykeeper) RequestDeposit(ctx context.Context, order *domain.Order) Result {
	form := url.Values{}
	form.Set("pay_amount", order.Amount.StringFixed(2))
	form.Set("orderid", order.ID)
	form.Set("service_name", "Покупка товаров")
	if order.Detail != nil {
		form.Set("clientid", order.Detail.FirstName)
		form.Set("client_email", order.Detail.Email)
		form.Set("client_phone", order.Detail.Phone)
	}

	res := p.post(ctx, "change/invoice/preview/", form, order.ID)
	invoiceID := paramString(res.Raw, "invoice_id")
	if invoiceID == "" {
		// transport may have succeeded; no invoice id is still a failure
		res.Success = false
		res.Err = fmt.Sprintf("invoice requisites not found in response: %v", res.Raw)
		return res
	}
	if res.Success {
		res.Info = &OrderInfo{
			OrderID:         order.ID,
			ProviderOrderID: invoiceID,
			Status:          domain.StatusCreated,
			StatusKnown:     true,
			Merchant: MerchantData{
				PaymentURL: paramString(res.Raw, "invoice_url"),
			},
		}
	}
	return res
}

func (p *Paykeeper) GetOrderInfo(ctx context.Context, order *domain.Order) Result {
	if order.ExternalID == "" {
		return Result{Err: "external order id is required to fetch provider order info"}
	}
	res := p.caller.call(ctx, callOpts{
		method:  "GET",
		url:     p.cfg.BaseURL + "info/invoice/byid/?id=" + url.QueryEscape(order.ExternalID),
		headers: p.headers(),
		orderID: order.ID,
	})
	if res.Success {
		status, known := paykeeperStatuses[paramString(res.Raw, "status")]
		if !known {
			status = domain.StatusError
		}
		amount, err := parseAmount(paramString(res.Raw, "pay_amount"))
		if err != nil {
			res.Success = false
			res.Err = fmt.Sprintf("unparseable pay_amount in response: %v", err)
			return res
		}
		res.Info = &OrderInfo{
			OrderID:         order.ID,
			ProviderOrderID: paramString(res.Raw, "id"),
			Status:          status,
			StatusKnown:     known,
			AmountActual:    amount,
		}
	}
	return res
}

func (p *Paykeeper) VerifyWebhook(payload map[string]any) bool {
	var toSign string
	for _, field := range webhookSignedFields {
		if v, ok := payload[field]; ok {
			toSign += anyToString(v)
		}
	}
	toSign += p.cfg.Secret
	sum := md5.Sum([]byte(toSign))
	return hex.EncodeToString(sum[:]) == anyToString(payload["key"])
}

func (p *Paykeeper) ParseWebhook(payload map[string]any) OrderInfo {
	// Paykeeper only fires the callback once an invoice is settled; a status
	// field, when present, still goes through the mapping table.
	status, known := domain.StatusPaid, true
	if raw := paramString(payload, "status"); raw != "" {
		status, known = paykeeperStatuses[raw]
		if !known {
			status = domain.StatusError
		}
	}
	amount, err := parseAmount(paramString(payload, "sum"))
	if err != nil {
		// a settled amount we cannot read must never be recorded as zero paid
		status, known = domain.StatusError, false
	}
	return OrderInfo{
		OrderID:         paramString(payload, "orderid"),
		ProviderOrderID: paramString(payload, "id"),
		Status:          status,
		StatusKnown:     known,
		AmountActual:    amount,
	}
}

func (p *Paykeeper) WebhookAck(providerOrderID string) string {
	sum := md5.Sum([]byte(providerOrderID + p.cfg.Secret))
	return "OK " + hex.EncodeToString(sum[:])
}

// parseAmount treats an absent amount as zero and a malformed one as an
// error the caller must surface.
func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func anyToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var _ Provider = (*Paykeeper)(nil)
