package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	msgPriceFieldsRequired = "商品名と価格が必要です"
	msgPriceListFailed     = "価格情報の取得に失敗しました"
	msgPriceCreateFailed   = "価格の作成に失敗しました"
	msgIntervalInvalid     = "請求間隔が不正です"
)

var validIntervals = map[string]struct{}{
	"day": {}, "week": {}, "month": {}, "year": {},
}

// Price is the storefront view of a Stripe price.
type Price struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname,omitempty"`
	UnitAmount  int64  `json:"unitAmount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval,omitempty"`
	ProductID   string `json:"productId,omitempty"`
	ProductName string `json:"productName,omitempty"`
	Description string `json:"description,omitempty"`
	Created     int64  `json:"created"`
}

type PriceList struct {
	Prices []Price `json:"prices"`
	Count  int     `json:"count"`
}

func priceFromStripe(p *stripe.Price) Price {
	out := Price{
		ID:         p.ID,
		Nickname:   p.Nickname,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Created:    p.Created,
	}
	if p.Recurring != nil {
		out.Interval = string(p.Recurring.Interval)
	}
	if p.Product != nil {
		out.ProductID = p.Product.ID
		out.ProductName = p.Product.Name
		out.Description = p.Product.Description
	}
	return out
}

// ListPrices returns active prices with their products.
func (s *Service) ListPrices(ctx context.Context) (*PriceList, error) {
	if err := s.requireStripe(); err != nil {
		return nil, err
	}
	prices, err := s.stripe.ListActivePrices(ctx)
	if err != nil {
		s.logg.Error(ctx, "stripe price list failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgPriceListFailed).WithDetails(err.Error())
	}
	out := &PriceList{Prices: make([]Price, 0, len(prices))}
	for _, p := range prices {
		if p == nil {
			continue
		}
		out.Prices = append(out.Prices, priceFromStripe(p))
	}
	out.Count = len(out.Prices)
	return out, nil
}

// CreatePriceRequest defines a new recurring plan. Amount is in the currency's
// minor unit; for jpy that is yen.
type CreatePriceRequest struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// CreatePrice creates a product named after the plan and a recurring price on it.
func (s *Service) CreatePrice(ctx context.Context, req CreatePriceRequest) (*Price, error) {
	if err := s.requireStripe(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPriceFieldsRequired)
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.Currency
	}
	interval := strings.ToLower(strings.TrimSpace(req.Interval))
	if interval == "" {
		interval = defaultInterval
	}
	if _, ok := validIntervals[interval]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgIntervalInvalid)
	}

	p, err := s.stripe.CreateRecurringPrice(ctx, name, fmt.Sprintf("%sプラン", name), req.Amount, currency, interval)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "product_name", name), "stripe price create failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgPriceCreateFailed).WithDetails(err.Error())
	}
	out := priceFromStripe(p)
	if out.ProductName == "" {
		out.ProductName = name
	}
	return &out, nil
}
