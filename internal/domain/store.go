package domain

import "time"

// StoreLocation is a store found through the geolocation provider.
type StoreLocation struct {
	Name      string  `json:"name,omitempty"`
	PlaceID   string  `json:"place_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// BarcodeMapping links a scanned barcode to a canonical product.
type BarcodeMapping struct {
	Barcode     string    `json:"barcode"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// BarcodeSourceUserScan marks crowdsourced barcode links.
const BarcodeSourceUserScan = "user_scan"
