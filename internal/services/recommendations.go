package services

import (
	"errors"
	"fmt"

	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/recommend"
)

var ErrUnknownUserType = errors.New("unknown user type")

type UserType string

const (
	UserShopkeeper   UserType = "shopkeeper"
	UserCustomer     UserType = "customer"
	UserProductOwner UserType = "product_owner"
)

// Recommendations dispatches on the audience. Product owners get the basic
// analytics report on the free plan and competitor analysis on premium.
func (p *Pipeline) Recommendations(userType UserType) (any, error) {
	s := p.snapshot()
	if s.data == nil {
		return nil, ErrNoData
	}

	switch userType {
	case UserShopkeeper:
		if s.model == nil {
			return nil, demand.ErrModelNotTrained
		}
		return recommend.Shopkeeper(s.data, s.model, p.opts.Recommend)
	case UserCustomer:
		return recommend.Customers(s.data, p.opts.Recommend), nil
	case UserProductOwner:
		if s.plan == recommend.PlanPremium {
			return recommend.ProductOwnerPremium(s.data, s.plan)
		}
		return recommend.ProductOwnerBasic(s.data), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUserType, userType)
	}
}

func (p *Pipeline) SetSubscription(plan string) (recommend.SubscriptionInfo, error) {
	parsed, err := recommend.ParsePlan(plan)
	if err != nil {
		return recommend.SubscriptionInfo{}, err
	}

	p.mu.Lock()
	p.plan = parsed
	p.mu.Unlock()

	p.logger.Info("subscription updated", "plan", parsed)
	return recommend.Info(parsed), nil
}

func (p *Pipeline) SubscriptionInfo() recommend.SubscriptionInfo {
	return recommend.Info(p.snapshot().plan)
}
