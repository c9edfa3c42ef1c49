package domain

import "time"

type CartSnapshot struct {
	ID             string    `bson:"_id" json:"id"`
	CustomerEmail  string    `bson:"customer_email,omitempty" json:"customerEmail,omitempty"`
	LastModifiedAt time.Time `bson:"last_modified_at" json:"lastModifiedAt"`
	TotalPrice     *Money    `bson:"total_price,omitempty" json:"totalPrice,omitempty"`
}

type Money struct {
	CentAmount   int64  `bson:"cent_amount" json:"centAmount"`
	CurrencyCode string `bson:"currency_code" json:"currencyCode"`
}

// CartPage is one offset/limit slice of the cart collection. Total is the
// size of the whole collection at fetch time, not of this page.
type CartPage struct {
	Carts []CartSnapshot
	Total int
}
