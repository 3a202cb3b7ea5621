// Package domain holds the entities shared across the purchase pipeline.
package domain

import "time"

// Role distinguishes admin callers from regular shoppers.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
)

// User is created on first login and is immutable afterward.
type User struct {
	UserID    string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Product is immutable for the lifetime of a sale.
type Product struct {
	ProductID   string
	Name        string
	Description string
	Price       float64 // decimal, two-digit scale at the HTTP boundary
}

// Stock owns availableQuantity; nothing else may write it.
type Stock struct {
	ProductID         string
	TotalQuantity     int
	AvailableQuantity int
	ReservedQuantity  int
}

// SaleStatus is derived from wall-clock, never stored.
type SaleStatus string

const (
	SaleStatusUpcoming SaleStatus = "upcoming"
	SaleStatusActive   SaleStatus = "active"
	SaleStatusEnded    SaleStatus = "ended"
)

// FlashSale binds one product to one sale window.
type FlashSale struct {
	SaleID    string
	ProductID string
	StartTime time.Time
	EndTime   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status computes the sale's derived status against now.
func (f FlashSale) Status(now time.Time) SaleStatus {
	switch {
	case now.Before(f.StartTime):
		return SaleStatusUpcoming
	case now.Before(f.EndTime):
		return SaleStatusActive
	default:
		return SaleStatusEnded
	}
}

// OrderStatus enumerates the lifecycle of an Order row.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is protected by a unique (userId, productId) constraint — invariant O1.
type Order struct {
	OrderID   string
	JobID     string
	UserID    string
	ProductID string
	Status    OrderStatus
	CreatedAt time.Time
}

// JobStatus is the purchase job's progress as seen by admission and workers.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// FailureReason enumerates terminal non-success outcomes for a PurchaseJob.
type FailureReason string

const (
	ReasonAlreadyPurchased FailureReason = "AlreadyPurchased"
	ReasonOutOfStock       FailureReason = "OutOfStock"
	ReasonSaleNotOpen      FailureReason = "SaleNotOpen"
	ReasonInternal         FailureReason = "Internal"
)

// PurchaseJob is born on admission and mirrored into the status cache.
type PurchaseJob struct {
	JobID         string
	UserID        string
	ProductID     string
	SaleID        string
	EnqueuedAt    time.Time
	Status        JobStatus
	OrderID       string        // set on success
	FailureReason FailureReason // set on failure
	Retries       int           // delivery attempts beyond the first
}

// Terminal reports whether the job has reached an immutable end state.
func (j PurchaseJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// RetryCount returns the number of redeliveries this job has already had.
func (j PurchaseJob) RetryCount() int {
	return j.Retries
}

// IncrementRetry records another redelivery and returns the job to queued
// status so a worker will pick it up again.
func (j *PurchaseJob) IncrementRetry() {
	j.Retries++
	j.Status = JobStatusQueued
}

// SaleStatusView is the read model served by the sale projection.
type SaleStatusView struct {
	SaleID            string
	ProductID         string
	ProductName       string
	ProductPrice      float64
	StartTime         time.Time
	EndTime           time.Time
	Status            SaleStatus
	TotalQuantity     int
	AvailableQuantity int
	TimeUntilStart    time.Duration
	TimeUntilEnd      time.Duration
}

// Stats is the admin-facing read model over orders and stock.
type Stats struct {
	TotalOrders       int
	ConfirmedOrders   int
	PendingOrders     int
	FailedOrders      int
	TotalQuantity     int
	AvailableQuantity int
	SoldQuantity      int
	TotalRevenue      float64
}
