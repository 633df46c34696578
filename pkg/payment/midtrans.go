package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type Customer struct {
	Id       uuid.UUID
	FullName string
	Email    string
}

type Checkout struct {
	OrderId     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Gateway opens hosted checkout sessions. The purchase itself is only recorded when
// the signed notification arrives.
type Gateway interface {
	CreateCheckout(ctx context.Context, customer Customer, pkg Package) (*Checkout, error)
}

type snapCreator interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type MidtransGateway struct {
	client    snapCreator
	finishURL string
}

func NewMidtransGateway(serverKey string, isProduction bool, finishURL string) *MidtransGateway {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}
	var c snap.Client
	c.New(serverKey, env)
	return &MidtransGateway{client: &c, finishURL: finishURL}
}

func (g *MidtransGateway) CreateCheckout(ctx context.Context, customer Customer, pkg Package) (*Checkout, error) {
	orderId := uuid.New().String()
	gross := pkg.Price.IntPart()

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderId,
			GrossAmt: gross,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: g.finishURL,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customer.FullName,
			Email: customer.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    pkg.ID,
				Price: gross,
				Qty:   1,
				Name:  fmt.Sprintf("%s - %d credits", pkg.Name, pkg.Credits),
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
		CustomField1:    customer.Id.String(),
		CustomField2:    strconv.Itoa(pkg.Credits),
		CustomField3:    pkg.ID,
	}

	resp, midErr := g.client.CreateTransaction(req)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}
	return &Checkout{OrderId: orderId, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}
