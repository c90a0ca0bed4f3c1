package http

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/events"
	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/gateway"
	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/resolver"
	billingusecases "github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/usecases"
	quotausecases "github.com/gamezxlan/ley-en-mano-backend/internal/application/quota/usecases"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/subscription"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/auth"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/billing"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/generation"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/ratelimit"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/repository"
	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/http/handlers"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// Container wires repositories, usecases and handlers for the HTTP surface.
type Container struct {
	cfg    *config.Config
	logger logger.Interface
	redis  *redis.Client

	userRepo         user.Repository
	planRepo         plan.Repository
	entitlementRepo  entitlement.Repository
	subscriptionRepo subscription.Repository
	usageEventRepo   usage.EventRepository
	visitorRepo      usage.VisitorRepository

	sessionStore auth.SessionStore
	gateway      gateway.Gateway
	rateLimiter  ratelimit.RateLimiter

	webhookHandler *handlers.WebhookHandler
	billingHandler *handlers.BillingHandler
	policyHandler  *handlers.PolicyHandler
	consultHandler *handlers.ConsultHandler

	trackVisitorUseCase *quotausecases.TrackVisitorUseCase
}

func NewContainer(cfg *config.Config, db *gorm.DB, log logger.Interface) *Container {
	c := &Container{cfg: cfg, logger: log}

	c.redis = initRedis(cfg, log)
	if c.redis != nil {
		c.rateLimiter = ratelimit.NewRedisRateLimiter(c.redis)
	} else {
		c.rateLimiter = ratelimit.NewMemoryRateLimiter()
	}

	c.userRepo = repository.NewUserRepository(db, log.Named("user-repo"))
	c.planRepo = repository.NewPlanRepository(db, log.Named("plan-repo"))
	c.entitlementRepo = repository.NewEntitlementRepository(db, log.Named("entitlement-repo"))
	c.subscriptionRepo = repository.NewSubscriptionRepository(db, log.Named("subscription-repo"))
	c.usageEventRepo = repository.NewUsageEventRepository(db, log.Named("usage-repo"))
	c.visitorRepo = repository.NewVisitorRepository(db, log.Named("visitor-repo"))

	c.sessionStore = auth.NewSessionStore(db, &cfg.Auth.Session, log.Named("sessions"))
	c.gateway = billing.NewStripeGateway(cfg.Billing.SecretKey, log.Named("stripe"))

	resolveTimeout := time.Duration(cfg.Billing.ResolveTimeoutMS) * time.Millisecond
	res := resolver.NewResolver(c.userRepo, c.planRepo, c.gateway, resolveTimeout, log.Named("resolver"))
	normalizer := events.NewNormalizer(cfg.Billing.WebhookSecret)

	reconcileUC := billingusecases.NewReconcileEventUseCase(
		normalizer, res, c.entitlementRepo, c.subscriptionRepo, log.Named("reconcile"))
	createCheckoutUC := billingusecases.NewCreateCheckoutUseCase(
		c.planRepo, c.userRepo, c.gateway, log.Named("checkout"))
	upgradeCheckoutUC := billingusecases.NewUpgradeCheckoutUseCase(
		c.entitlementRepo, c.planRepo, c.userRepo, c.gateway,
		time.Duration(cfg.Billing.CouponTTLMinutes)*time.Minute, cfg.Billing.Currency,
		log.Named("upgrade"))
	createPortalUC := billingusecases.NewCreatePortalUseCase(c.userRepo, c.gateway, log.Named("portal"))
	completeCheckoutUC := billingusecases.NewCompleteCheckoutUseCase(
		c.gateway, c.userRepo, c.entitlementRepo, c.sessionStore, log.Named("complete"))

	resolvePolicyUC := quotausecases.NewResolvePolicyUseCase(
		c.entitlementRepo, c.subscriptionRepo, c.planRepo, c.usageEventRepo,
		cfg.Quota, log.Named("policy"))
	consumeQuotaUC := quotausecases.NewConsumeQuotaUseCase(c.entitlementRepo, log.Named("consume"))
	refundQuotaUC := quotausecases.NewRefundQuotaUseCase(c.entitlementRepo, log.Named("refund"))
	recordUsageUC := quotausecases.NewRecordUsageUseCase(c.usageEventRepo, log.Named("usage"))
	c.trackVisitorUseCase = quotausecases.NewTrackVisitorUseCase(c.visitorRepo, log.Named("visitor"))

	c.webhookHandler = handlers.NewWebhookHandler(reconcileUC, log.Named("webhook"))
	c.billingHandler = handlers.NewBillingHandler(
		createCheckoutUC, upgradeCheckoutUC, createPortalUC, completeCheckoutUC,
		c.planRepo, &cfg.Server, &cfg.Auth.Session, log.Named("billing"))
	c.policyHandler = handlers.NewPolicyHandler(resolvePolicyUC, log.Named("policy-handler"))
	c.consultHandler = handlers.NewConsultHandler(
		resolvePolicyUC, consumeQuotaUC, refundQuotaUC, recordUsageUC,
		generation.NewTemplateGenerator(log.Named("generator")), log.Named("consult"))

	return c
}

// Close releases the container's connections.
func (c *Container) Close() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Warnw("failed to close redis client", "error", err)
		}
	}
}

// initRedis creates and tests the Redis client connection. Redis is
// optional: when the ping fails the caller falls back to the in-process
// rate limiter instead of refusing to start.
func initRedis(cfg *config.Config, log logger.Interface) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnw("Redis unavailable, rate limiting falls back to process memory",
			"addr", cfg.Redis.GetAddr(), "error", err)
		_ = client.Close()
		return nil
	}
	log.Infow("Redis connection established")

	return client
}
