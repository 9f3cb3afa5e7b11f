package services

import (
	"context"
	"net/url"
	"strings"

	"checkout/internal/models"
	"checkout/internal/repositories"
	"checkout/pkg/paygate"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PaymentTransaction is the pending gateway handshake kept in the session
// between Initiate and the callback.
type PaymentTransaction struct {
	OrderID   string `json:"order_id"`
	Authority string `json:"authority"`
	Amount    int64  `json:"amount"`
}

// PaymentRedirect tells the buyer where to pay.
type PaymentRedirect struct {
	OrderID   string `json:"order_id"`
	Authority string `json:"authority"`
	Amount    int64  `json:"amount"`
	URL       string `json:"url"`
}

// Callback statuses sent by the gateway.
const (
	CallbackStatusOK  = "OK"
	CallbackStatusNOK = "NOK"
)

// SettlementService drives an order through the gateway handshake and
// applies the settlement side effects exactly once.
type SettlementService struct {
	repos       repositories.Repositories
	uow         repositories.UnitOfWork
	gateway     paygate.Gateway
	publisher   EventPublisher
	callbackURL string
	lg          *zap.Logger

	inflight singleflight.Group
}

// NewSettlementService creates a new SettlementService. callbackURL is the
// absolute URL of the payment callback route; the order id is appended.
func NewSettlementService(
	repos repositories.Repositories,
	uow repositories.UnitOfWork,
	gateway paygate.Gateway,
	publisher EventPublisher,
	callbackURL string,
	lg *zap.Logger,
) *SettlementService {
	return &SettlementService{
		repos:       repos,
		uow:         uow,
		gateway:     gateway,
		publisher:   publisher,
		callbackURL: callbackURL,
		lg:          lg,
	}
}

// Initiate asks the gateway for an authority to pay the order's final cost
// and remembers the pending transaction in the session. A failed attempt
// leaves the order as it was, so Initiate can be called again.
func (s *SettlementService) Initiate(ctx context.Context, sess Session, orderID, buyerID string) (*PaymentRedirect, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.OwnedBy(buyerID) {
		return nil, ErrOrderNotFound
	}
	if order.Paid {
		return nil, ErrAlreadyPaid
	}
	if err := s.checkInventory(ctx, order); err != nil {
		return nil, err
	}

	amount := order.FinalCost()
	auth, err := s.gateway.RequestPayment(ctx, paygate.PaymentRequest{
		Amount:      amount,
		Description: describe(order),
		Mobile:      order.Phone,
		CallbackURL: s.callbackFor(order.ID),
	})
	if err != nil {
		s.lg.Warn("Payment request failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, gatewayError("request payment", err)
	}

	if err := s.repos.Orders.RecordRequest(ctx, order.ID, auth.Authority); err != nil {
		return nil, errors.Wrap(err, "record payment request")
	}
	if err := storeJSON(sess, sessionPaymentKey, PaymentTransaction{
		OrderID:   order.ID,
		Authority: auth.Authority,
		Amount:    amount,
	}); err != nil {
		return nil, err
	}
	s.lg.Info("Payment requested",
		zap.String("order_id", order.ID),
		zap.String("authority", auth.Authority),
		zap.Int64("amount", amount),
	)
	return &PaymentRedirect{
		OrderID:   order.ID,
		Authority: auth.Authority,
		Amount:    amount,
		URL:       s.gateway.StartPayURL(auth.Authority),
	}, nil
}

// Callback handles the buyer returning from the gateway. When the session
// remembers a pending transaction for the order, the returned authority must
// match it. A canceled payment only fails the order for the session that
// started it. On success the cart and the pending transaction are cleared.
func (s *SettlementService) Callback(ctx context.Context, sess Session, orderID, authority, status string) (*models.Order, error) {
	var pending PaymentTransaction
	ok, err := loadJSON(sess, sessionPaymentKey, &pending)
	if err != nil {
		return nil, err
	}
	owned := ok && pending.OrderID == orderID
	if owned && pending.Authority != authority {
		return nil, ErrAuthorityMismatch
	}

	if status != CallbackStatusOK {
		if owned {
			if err := s.repos.Orders.UpdateStatus(ctx, orderID, models.OrderStatusFailed); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return nil, errors.Wrap(err, "update order status")
			}
			sess.Delete(sessionPaymentKey)
		}
		return nil, &GatewayRejectedError{Op: "payment callback", Status: paygate.StatusCanceled}
	}

	order, err := s.Settle(ctx, orderID, authority)
	if err != nil {
		return nil, err
	}
	sess.Delete(sessionPaymentKey)
	sess.Delete(sessionCartKey)
	return order, nil
}

// Settle verifies the payment with the gateway and, within one transaction,
// marks the order paid, decrements inventory, counts sales, consumes the
// coupon and credits loyalty points. Settling a paid order returns it as is,
// so duplicate callbacks observe the reference id of the first one.
func (s *SettlementService) Settle(ctx context.Context, orderID, authority string) (*models.Order, error) {
	// Callers coalesce only on the same authority, and the shared call
	// outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(orderID+"/"+authority, func() (interface{}, error) {
		return s.settle(shared, orderID, authority)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Order), nil
	}
}

func (s *SettlementService) settle(ctx context.Context, orderID, authority string) (*models.Order, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Paid {
		return order, nil
	}

	verification, err := s.gateway.VerifyPayment(ctx, order.FinalCost(), authority)
	if err != nil {
		gerr := gatewayError("verify payment", err)
		var rejected *GatewayRejectedError
		// Only the authority issued for this order can fail it.
		if errors.As(gerr, &rejected) && order.Authority != "" && order.Authority == authority {
			if err := s.repos.Orders.UpdateStatus(ctx, order.ID, models.OrderStatusFailed); err != nil {
				s.lg.Warn("Failed to mark order failed", zap.String("order_id", order.ID), zap.Error(err))
			}
		}
		s.lg.Warn("Payment verification failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, gerr
	}
	if verification.RefID == "" {
		return nil, &GatewayTransportError{Op: "verify payment", Err: errors.New("missing ref id")}
	}

	var (
		settled *models.Order
		applied bool
	)
	err = s.uow.Do(ctx, func(tx repositories.Repositories) error {
		var err error
		applied, err = tx.Orders.MarkPaid(ctx, order.ID, verification.RefID)
		if err != nil {
			return err
		}
		settled, err = tx.Orders.GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		return s.apply(ctx, tx, settled)
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.lg.Info("Order settled",
			zap.String("order_id", settled.ID),
			zap.String("ref_id", settled.RefID),
			zap.Int64("final_cost", settled.FinalCost()),
		)
		publishOrderEvent(s.publisher, s.lg, "order.paid", settled)
	}
	return settled, nil
}

// apply runs the settlement side effects inside the transaction that
// flipped the paid flag.
func (s *SettlementService) apply(ctx context.Context, tx repositories.Repositories, order *models.Order) error {
	if len(order.Items) == 0 {
		return errors.Wrapf(ErrSettlementInvariant, "order %s has no items", order.ID)
	}
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return errors.Wrapf(ErrSettlementInvariant, "order %s item %s has quantity %d", order.ID, item.ID, item.Quantity)
		}
		if err := tx.Products.DecrementInventory(ctx, item.ProductID, item.Quantity); err != nil {
			return s.inventoryError(ctx, tx, item, err)
		}
		if err := tx.Products.IncrementSold(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if order.CouponCode != "" {
		var buyer string
		if order.BuyerID != nil {
			buyer = *order.BuyerID
		}
		if err := tx.Coupons.RecordUsage(ctx, order.CouponCode, buyer); err != nil {
			return errors.Wrap(err, "record coupon usage")
		}
	}

	if order.BuyerID != nil {
		points := models.LoyaltyPoints(order.TotalCost())
		if err := tx.Users.AddLoyaltyPoints(ctx, *order.BuyerID, points); err != nil {
			return errors.Wrap(err, "add loyalty points")
		}
	}
	return nil
}

func (s *SettlementService) inventoryError(ctx context.Context, tx repositories.Repositories, item models.OrderItem, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return &ProductUnavailableError{ProductID: item.ProductID}
	case errors.Is(err, repositories.ErrInsufficientInventory):
		available := 0
		if p, perr := tx.Products.GetByID(ctx, item.ProductID); perr == nil {
			available = p.Inventory
		}
		return &InsufficientInventoryError{ProductID: item.ProductID, Requested: item.Quantity, Available: available}
	default:
		return err
	}
}

func (s *SettlementService) checkInventory(ctx context.Context, order *models.Order) error {
	for _, item := range order.Items {
		product, err := s.repos.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return &ProductUnavailableError{ProductID: item.ProductID}
			}
			return err
		}
		if product.Inventory < item.Quantity {
			return &InsufficientInventoryError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: product.Inventory,
			}
		}
	}
	return nil
}

func (s *SettlementService) callbackFor(orderID string) string {
	u, err := url.Parse(s.callbackURL)
	if err != nil {
		return s.callbackURL
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}

func describe(order *models.Order) string {
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.ProductName)
	}
	return strings.Join(names, ", ")
}

// gatewayError keeps rejections apart from every other failure, which is
// treated as an unknown outcome.
func gatewayError(op string, err error) error {
	var rejected *paygate.RejectedError
	if errors.As(err, &rejected) {
		return &GatewayRejectedError{Op: op, Status: rejected.Status}
	}
	return &GatewayTransportError{Op: op, Err: err}
}
