package domain

import "time"

const (
	StatusOrderPlaced   = "Order Placed"
	StatusLeftWarehouse = "Left Warehouse"
	StatusArrivingToday = "Arriving Today"
	StatusDelivered     = "Delivered"
	StatusCanceled      = "Canceled"
)

// OrderStatuses lists every order status in display order.
var OrderStatuses = []string{
	StatusOrderPlaced,
	StatusLeftWarehouse,
	StatusArrivingToday,
	StatusDelivered,
	StatusCanceled,
}

const (
	PaymentPaid              = "paid"
	PaymentUnpaid            = "unpaid"
	PaymentNoPaymentRequired = "no_payment_required"
)

var PaymentStatuses = []string{PaymentPaid, PaymentUnpaid, PaymentNoPaymentRequired}

// ValidOrderStatus reports whether s is a known order status. Any known status may follow any other.
func ValidOrderStatus(s string) bool { return contains(OrderStatuses, s) }

func ValidPaymentStatus(s string) bool { return contains(PaymentStatuses, s) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type Address struct {
	Street     string `json:"street" bson:"street" db:"street"`
	City       string `json:"city" bson:"city" db:"city"`
	State      string `json:"state" bson:"state" db:"state"`
	Country    string `json:"country" bson:"country" db:"country"`
	PostalCode string `json:"postal_code" bson:"postal_code" db:"postal_code"`
}

type Order struct {
	ID            string        `bson:"_id" json:"id"`
	UserID        string        `bson:"user_id" json:"user_id"`
	UserEmail     string        `bson:"user_email" json:"user_email"`
	Total         int64         `bson:"order_total" json:"order_total"`
	PaymentStatus string        `bson:"payment_status" json:"payment_status"`
	OrderStatus   string        `bson:"order_status" json:"order_status"`
	Address       Address       `bson:"order_address" json:"order_address"`
	Details       []OrderDetail `bson:"order_details" json:"order_details"`
	SessionID     string        `bson:"session_id" json:"session_id"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
}

type OrderDetail struct {
	ProductID    string `bson:"product_id" json:"product_id" db:"product_id"`
	ProductTitle string `bson:"product_title" json:"product_title" db:"product_title"`
	ProductPrice int64  `bson:"product_price" json:"product_price" db:"product_price"`
	ProductQty   int    `bson:"product_qty" json:"product_qty" db:"product_qty"`
	ProductColor string `bson:"product_color" json:"product_color" db:"product_color"`
	ProductSize  string `bson:"product_size" json:"product_size" db:"product_size"`
}

// ItemCount is the number of units across all details.
func (o Order) ItemCount() int {
	n := 0
	for _, d := range o.Details {
		n += d.ProductQty
	}
	return n
}
