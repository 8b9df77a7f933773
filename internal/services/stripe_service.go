package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

// StripeService handles checkout, webhooks and customer bookkeeping.
// Plans have no pre-provisioned Stripe prices; checkout sessions carry
// inline price data snapshotted from the plan catalog.
type StripeService struct {
	db            *gorm.DB
	cfg           *config.Config
	plans         *PlanService
	subscriptions *SubscriptionService
}

func NewStripeService(db *gorm.DB, cfg *config.Config, plans *PlanService, subscriptions *SubscriptionService) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{db: db, cfg: cfg, plans: plans, subscriptions: subscriptions}
}

func (s *StripeService) Enabled() bool {
	return s.cfg.StripeSecretKey != ""
}

// ensureCustomer finds or creates the Stripe customer for a user and
// stores its id on the users row.
func (s *StripeService) ensureCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
		Metadata: map[string]string{
			"user_id": user.ID.String(),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}

	if err := s.db.Model(user).Update("stripe_customer_id", cust.ID).Error; err != nil {
		return "", fmt.Errorf("failed to store stripe customer id: %w", err)
	}
	user.StripeCustomerID = &cust.ID
	return cust.ID, nil
}

type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckoutSession starts a Stripe Checkout for the given plan
// tier. The tier and billing cycle travel in session metadata so the
// webhook can create the local subscription without extra lookups.
func (s *StripeService) CreateCheckoutSession(userID uuid.UUID, tier, billingCycle string) (*CheckoutResult, error) {
	if !s.Enabled() {
		return nil, apperr.BadRequest("Billing is not configured")
	}
	if billingCycle != models.BillingCycleMonthly && billingCycle != models.BillingCycleYearly {
		return nil, apperr.Validation("Billing cycle must be monthly or yearly")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, apperr.NotFound("User")
	}

	plan, err := s.plans.GetByTier(tier)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(&user)
	if err != nil {
		return nil, err
	}

	interval := "month"
	if billingCycle == models.BillingCycleYearly {
		interval = "year"
	}
	frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(plan.PriceFor(billingCycle) * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(plan.Name),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
		Metadata: map[string]string{
			"user_id":       user.ID.String(),
			"tier":          plan.Tier,
			"billing_cycle": billingCycle,
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutResult{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// VerifyCheckoutSession confirms a completed checkout from the success
// redirect and provisions the subscription. Safe to call repeatedly;
// the Stripe subscription id deduplicates.
func (s *StripeService) VerifyCheckoutSession(sessionID string, userID uuid.UUID) (*models.Subscription, error) {
	if !s.Enabled() {
		return nil, apperr.BadRequest("Billing is not configured")
	}

	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return nil, apperr.NotFound("Checkout session")
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, apperr.BadRequest("Checkout session is not paid")
	}
	if sess.Metadata["user_id"] != userID.String() {
		return nil, apperr.BadRequest("Checkout session belongs to another user")
	}

	stripeSubID := ""
	if sess.Subscription != nil {
		stripeSubID = sess.Subscription.ID
	}
	return s.provisionFromCheckout(sess.Metadata, stripeSubID)
}

// CreatePortalSession opens the Stripe customer portal so users can
// manage cards and invoices.
func (s *StripeService) CreatePortalSession(userID uuid.UUID) (string, error) {
	if !s.Enabled() {
		return "", apperr.BadRequest("Billing is not configured")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return "", apperr.NotFound("User")
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", apperr.BadRequest("No billing profile for this user")
	}

	frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")
	sess, err := portal.New(&stripe.BillingPortalSessionParams{
		Customer:  user.StripeCustomerID,
		ReturnURL: stripe.String(frontendURL + "/settings/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook verifies and dispatches a Stripe event. Unhandled
// event types are acknowledged and ignored.
func (s *StripeService) HandleWebhook(payload []byte, signature string) error {
	if s.cfg.StripeWebhookSecret == "" {
		return apperr.BadRequest("Webhook is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return apperr.BadRequest("Webhook signature verification failed")
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return apperr.BadRequest("Invalid session payload")
		}
		stripeSubID := ""
		if sess.Subscription != nil {
			stripeSubID = sess.Subscription.ID
		}
		if _, err := s.provisionFromCheckout(sess.Metadata, stripeSubID); err != nil {
			return err
		}

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return apperr.BadRequest("Invalid invoice payload")
		}
		if invoice.Subscription != nil {
			return s.deactivateByStripeID(invoice.Subscription.ID)
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return apperr.BadRequest("Invalid subscription payload")
		}
		return s.deactivateByStripeID(sub.ID)

	default:
		slog.Debug("ignoring stripe event", "type", event.Type)
	}
	return nil
}

func (s *StripeService) provisionFromCheckout(metadata map[string]string, stripeSubID string) (*models.Subscription, error) {
	userID, err := uuid.Parse(metadata["user_id"])
	if err != nil {
		return nil, apperr.BadRequest("Checkout session has no user")
	}
	tier := metadata["tier"]
	billingCycle := metadata["billing_cycle"]
	if tier == "" || billingCycle == "" {
		return nil, apperr.BadRequest("Checkout session has no plan metadata")
	}

	if stripeSubID != "" {
		var existing models.Subscription
		err := s.db.Where("stripe_sub_id = ?", stripeSubID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
	}

	sub, err := s.subscriptions.Create(userID, tier, billingCycle)
	if err != nil {
		return nil, err
	}
	if stripeSubID != "" {
		if err := s.db.Model(sub).Update("stripe_sub_id", stripeSubID).Error; err != nil {
			return nil, fmt.Errorf("failed to store stripe subscription id: %w", err)
		}
		sub.StripeSubID = &stripeSubID
	}
	slog.Info("subscription provisioned from checkout", "user_id", userID.String(), "tier", tier)
	return sub, nil
}

func (s *StripeService) deactivateByStripeID(stripeSubID string) error {
	if stripeSubID == "" {
		return nil
	}
	result := s.db.Model(&models.Subscription{}).
		Where("stripe_sub_id = ?", stripeSubID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"auto_renew": false,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		slog.Info("subscription deactivated by stripe event", "stripe_sub_id", stripeSubID)
	}
	return nil
}

// StripeGateway charges renewals off-session against the stored
// customer's default payment method.
type StripeGateway struct {
	db *gorm.DB
}

func NewStripeGateway(db *gorm.DB) *StripeGateway {
	return &StripeGateway{db: db}
}

func (g *StripeGateway) AttemptPayment(sub *models.Subscription) error {
	var user models.User
	if err := g.db.First(&user, "id = ?", sub.UserID).Error; err != nil {
		return fmt.Errorf("failed to load subscription owner: %w", err)
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return fmt.Errorf("user has no stripe customer")
	}

	params := &stripe.PaymentIntentParams{
		Amount:     stripe.Int64(int64(sub.Price * 100)),
		Currency:   stripe.String("usd"),
		Customer:   stripe.String(*user.StripeCustomerID),
		Confirm:    stripe.Bool(true),
		OffSession: stripe.Bool(true),
	}
	params.Description = stripe.String(fmt.Sprintf("%s plan renewal (%s)", sub.Tier, sub.BillingCycle))

	intent, err := paymentintent.New(params)
	if err != nil {
		return fmt.Errorf("renewal charge failed: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("renewal charge not completed: %s", intent.Status)
	}
	return nil
}
