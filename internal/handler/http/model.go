package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserType string `json:"userType"`
	Email    string `json:"email"`
	UserID   string `json:"userId"`
}

type VerifyResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

type SaleStatusResponse struct {
	Data *SaleStatus `json:"data"`
}

type SaleStatus struct {
	SaleID            string  `json:"saleId"`
	ProductID         string  `json:"productId"`
	ProductName       string  `json:"productName"`
	ProductPrice      float64 `json:"productPrice"`
	StartTime         string  `json:"startTime"`
	EndTime           string  `json:"endTime"`
	Status            string  `json:"status"`
	TotalQuantity     int     `json:"totalQuantity"`
	AvailableQuantity int     `json:"availableQuantity"`
	TimeUntilStart    int64   `json:"timeUntilStartMs,omitempty"`
	TimeUntilEnd      int64   `json:"timeUntilEndMs,omitempty"`
}

type PurchaseResponse struct {
	JobID             string `json:"jobId"`
	Status            string `json:"status"`
	EstimatedWaitTime int    `json:"estimatedWaitTime"`
}

type PurchaseStatusResponse struct {
	Status            string     `json:"status"`
	JobID             string     `json:"jobId,omitempty"`
	OrderID           string     `json:"orderId,omitempty"`
	FailureReason     string     `json:"failureReason,omitempty"`
	PurchasedAt       *time.Time `json:"purchasedAt,omitempty"`
	EstimatedWaitTime int        `json:"estimatedWaitTime,omitempty"`
}

type CreateFlashSaleRequest struct {
	SaleID    string    `json:"saleId,omitempty"`
	ProductID string    `json:"productId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Quantity  int       `json:"quantity"`
}

type FlashSaleResponse struct {
	SaleID    string `json:"saleId"`
	ProductID string `json:"productId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

type StatsResponse struct {
	TotalOrders       int     `json:"totalOrders"`
	ConfirmedOrders   int     `json:"confirmedOrders"`
	PendingOrders     int     `json:"pendingOrders"`
	FailedOrders      int     `json:"failedOrders"`
	TotalQuantity     int     `json:"totalQuantity"`
	AvailableQuantity int     `json:"availableQuantity"`
	SoldQuantity      int     `json:"soldQuantity"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
