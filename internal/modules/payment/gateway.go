package payment

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"
)

// Gateway opens a push-payment session with the payment provider.
// To add a real provider, implement this interface.
type Gateway interface {
	CreateQR(ctx context.Context, req QRRequest) (*QRSession, error)
}

// QRRequest is what the customer's banking app will be asked to pay.
type QRRequest struct {
	OrderID   int64
	Reference string // transfer note, e.g. DOC-000042
	Amount    int64
	ReturnURL string
}

// QRSession is the provider's answer: a reference to reconcile on and a QR image to show.
type QRSession struct {
	ProviderRef string
	ImageURL    string
}

// vietQRGateway builds VietQR images for a fixed receiving account. The bank
// transfer that follows is reported back through the bank webhook, so there is
// nothing to call here beyond composing the image URL.
type vietQRGateway struct {
	bankID      string
	accountNo   string
	accountName string
	now         func() time.Time
}

func NewVietQRGateway(bankID, accountNo, accountName string) Gateway {
	return &vietQRGateway{bankID: bankID, accountNo: accountNo, accountName: accountName, now: time.Now}
}

func (g *vietQRGateway) CreateQR(ctx context.Context, req QRRequest) (*QRSession, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	if g.bankID == "" || g.accountNo == "" {
		return nil, fmt.Errorf("receiving bank account is not configured")
	}

	q := url.Values{}
	q.Set("amount", fmt.Sprint(req.Amount))
	q.Set("addInfo", req.Reference)
	if g.accountName != "" {
		q.Set("accountName", g.accountName)
	}
	image := fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact.png?%s",
		url.PathEscape(g.bankID), url.PathEscape(g.accountNo), q.Encode())

	ref := fmt.Sprintf("VNP-%s-%04d", g.now().Format("20060102150405"), rand.Intn(10000))
	return &QRSession{ProviderRef: ref, ImageURL: image}, nil
}
