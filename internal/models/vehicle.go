package models

import "time"

// Vehicle - данные машины и путевого листа, присланные поставщиком по задаче.
type Vehicle struct {
	ID             string      `json:"id"`
	TaskID         string      `json:"task_id"`
	ManifestNumber string      `json:"manifest_number"`
	ManifestSerial NullString  `json:"manifest_serial"`
	DispatchNumber string      `json:"dispatch_number"`
	LicensePlate   string      `json:"license_plate"`
	CarriageNumber NullString  `json:"carriage_number"`
	Volume         NullFloat64 `json:"volume"`
	SupplierID     int64       `json:"supplier_id"`
	CreatedAt      time.Time   `json:"created_at"`
}
