package domain

import "time"

const DefaultCurrencyCode = "USD"

type AbandonedCartRecord struct {
	CartID          string    `json:"cartId"`
	CustomerEmail   string    `json:"customerEmail"`
	CartTotal       string    `json:"cartTotal"`
	CurrencyCode    string    `json:"currencyCode"`
	AbandonmentDate time.Time `json:"abandonmentDate"`
}

type RecordPage struct {
	Results []AbandonedCartRecord `json:"results"`
	Total   int                   `json:"total"`
}
