package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/priointimate/PrioBusiness/internal/db"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/settings"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// newFileService opens a file-backed SQLite database the way the server does.
func newFileService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "ledger.db"))
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	settings.Store(time.Time{}, nil)
	t.Cleanup(func() { settings.Store(time.Time{}, nil) })
	return NewService(conn, nil), conn
}

// parallel runs fn n times at once and returns the errors in call order.
func parallel(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestFractionalCommissionWithdrawsToZero(t *testing.T) {
	svc, conn := newFileService(t)
	ctx := context.Background()

	referrer, errReferrer := svc.Register(ctx, RegisterInput{Name: "Maya", Email: "maya@example.com", PasswordHash: "h"})
	if errReferrer != nil {
		t.Fatalf("register referrer: %v", errReferrer)
	}
	payer, errPayer := svc.Register(ctx, RegisterInput{Name: "Nila", Email: "nila@example.com", PasswordHash: "h", ReferralCode: referrer.ReferralCode})
	if errPayer != nil {
		t.Fatalf("register payer: %v", errPayer)
	}

	for i := 0; i < 7; i++ {
		req, errReq := svc.CreatePaymentRequest(ctx, PaymentInput{
			UserID:        payer.ID,
			PackageID:     "popular",
			SenderNumber:  "01700000000",
			TransactionID: fmt.Sprintf("TRX%03d", i),
			Coupon:        "SAVE49",
		})
		if errReq != nil {
			t.Fatalf("create payment %d: %v", i, errReq)
		}
		if req.Amount != 451 {
			t.Fatalf("amount = %d, want 451", req.Amount)
		}
		if _, errApprove := svc.ApprovePayment(ctx, req.ID, 1); errApprove != nil {
			t.Fatalf("approve %d: %v", i, errApprove)
		}
	}

	want := decimal.RequireFromString("315.7")
	if got := reload(t, conn, referrer.ID); !got.ReferralEarnings.Equal(want) {
		t.Fatalf("earnings = %s, want %s", got.ReferralEarnings, want)
	}

	withdraw, errWithdraw := svc.CreateWithdrawRequest(ctx, WithdrawInput{UserID: referrer.ID, Method: "bKash", Number: "01800000000"})
	if errWithdraw != nil {
		t.Fatalf("withdraw: %v", errWithdraw)
	}
	if !withdraw.Amount.Equal(want) {
		t.Fatalf("withdraw amount = %s, want %s", withdraw.Amount, want)
	}
	if got := reload(t, conn, referrer.ID); !got.ReferralEarnings.IsZero() {
		t.Fatalf("earnings after withdraw = %s, want 0", got.ReferralEarnings)
	}

	if _, errApprove := svc.ApproveWithdraw(ctx, withdraw.ID, 1); errApprove != nil {
		t.Fatalf("approve withdraw: %v", errApprove)
	}
	if got := reload(t, conn, referrer.ID); !got.TotalCommissionPaid.Equal(want) {
		t.Fatalf("commission paid = %s, want %s", got.TotalCommissionPaid, want)
	}
}

func TestConcurrentUnlockChargesOnce(t *testing.T) {
	svc, conn := newFileService(t)
	user := createUser(t, conn, "Ana", 250, "0")
	item := createVaultItem(t, conn)

	var mu sync.Mutex
	charged := 0
	errs := parallel(8, func(int) error {
		result, err := svc.Unlock(context.Background(), user.ID, item.ID)
		if err == nil && result.Charged {
			mu.Lock()
			charged++
			mu.Unlock()
		}
		return err
	})
	for i, err := range errs {
		if err != nil {
			t.Fatalf("unlock %d: %v", i, err)
		}
	}
	if charged != 1 {
		t.Fatalf("charged = %d, want 1", charged)
	}
	if got := reload(t, conn, user.ID); got.Credits != 150 {
		t.Fatalf("credits = %d, want 150", got.Credits)
	}
	var unlocks int64
	conn.Model(&models.VaultUnlock{}).Where("user_id = ?", user.ID).Count(&unlocks)
	if unlocks != 1 {
		t.Fatalf("unlock rows = %d, want 1", unlocks)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, conn := newFileService(t)
	user := createUser(t, conn, "Ana", 5, "0")

	errs := parallel(8, func(i int) error {
		_, err := svc.Debit(context.Background(), user.ID, 1, models.CreditKindChat, fmt.Sprintf("chat:%d", i))
		return err
	})
	ok, insufficient := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientCredits):
			insufficient++
		default:
			t.Fatalf("debit %d: %v", i, err)
		}
	}
	if ok != 5 || insufficient != 3 {
		t.Fatalf("ok = %d insufficient = %d, want 5 and 3", ok, insufficient)
	}
	if got := reload(t, conn, user.ID); got.Credits != 0 {
		t.Fatalf("credits = %d, want 0", got.Credits)
	}
	var audit int64
	conn.Model(&models.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&audit)
	if audit != 5 {
		t.Fatalf("credit transactions = %d, want 5", audit)
	}
}

func TestConcurrentWithdrawReservesOnce(t *testing.T) {
	svc, conn := newFileService(t)
	user := createUser(t, conn, "Ana", 0, "300")

	errs := parallel(5, func(int) error {
		_, err := svc.CreateWithdrawRequest(context.Background(), WithdrawInput{UserID: user.ID, Method: "bKash", Number: "01800000000"})
		return err
	})
	ok := 0
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
		case IsValidation(err):
		default:
			t.Fatalf("withdraw %d: %v", i, err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful withdrawals = %d, want 1", ok)
	}
	var rows []models.WithdrawRequest
	conn.Where("user_id = ?", user.ID).Find(&rows)
	if len(rows) != 1 || !rows[0].Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("withdraw rows = %+v", rows)
	}
	if got := reload(t, conn, user.ID); !got.ReferralEarnings.IsZero() {
		t.Fatalf("earnings = %s, want 0", got.ReferralEarnings)
	}
}

func TestConcurrentApprovePaymentGrantsOnce(t *testing.T) {
	svc, conn := newFileService(t)
	ctx := context.Background()
	user := createUser(t, conn, "Ana", 0, "0")
	req, errReq := svc.CreatePaymentRequest(ctx, PaymentInput{UserID: user.ID, PackageID: "starter", SenderNumber: "01700000000", TransactionID: "TRX555"})
	if errReq != nil {
		t.Fatalf("create payment: %v", errReq)
	}

	decisions := make([]Decision, 6)
	errs := parallel(len(decisions), func(i int) error {
		decision, err := svc.ApprovePayment(ctx, req.ID, uint64(i+1))
		decisions[i] = decision
		return err
	})
	applied := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
		if decisions[i].Applied {
			applied++
		}
		if decisions[i].Status != string(models.RequestCompleted) {
			t.Fatalf("decision %d status = %q, want completed", i, decisions[i].Status)
		}
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if got := reload(t, conn, user.ID); got.Credits != 100 {
		t.Fatalf("credits = %d, want 100", got.Credits)
	}
	var grants int64
	conn.Model(&models.CreditTransaction{}).Where("user_id = ? AND kind = ?", user.ID, models.CreditKindPaymentGrant).Count(&grants)
	if grants != 1 {
		t.Fatalf("grant rows = %d, want 1", grants)
	}
}

func TestTransitionReportsStoredStatusWhenNotPending(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := createUser(t, conn, "Ana", 0, "0")
	req, _ := svc.CreatePaymentRequest(ctx, PaymentInput{UserID: user.ID, PackageID: "starter", SenderNumber: "01700000000", TransactionID: "TRX556"})
	if _, errReject := svc.RejectPayment(ctx, req.ID, 1); errReject != nil {
		t.Fatalf("reject: %v", errReject)
	}

	applied, current, errTransition := svc.transition(conn, &models.PaymentRequest{}, req.ID, models.RequestCompleted, 2)
	if errTransition != nil || applied || current != models.RequestRejected {
		t.Fatalf("transition = %v, %q, %v; want false, rejected", applied, current, errTransition)
	}
	if _, _, errMissing := svc.transition(conn, &models.PaymentRequest{}, 999, models.RequestCompleted, 2); !errors.Is(errMissing, ErrNotFound) {
		t.Fatalf("missing request error = %v, want ErrNotFound", errMissing)
	}
}
